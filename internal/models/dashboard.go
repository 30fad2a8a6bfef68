package models

type CategoryCount struct {
	CategoryID string `bson:"_id" json:"category_id"`
	Name       string `json:"name"`
	Count      int64  `bson:"count" json:"count"`
}

type DashboardStats struct {
	TotalUsers      int64                  `json:"total_users"`
	TotalTickets    int64                  `json:"total_tickets"`
	TotalCategories int64                  `json:"total_categories"`
	TicketsByStatus map[TicketStatus]int64 `json:"tickets_by_status"`
	UsersByRole     map[Role]int64         `json:"users_by_role"`
	TopCategories   []CategoryCount        `json:"top_categories"`
}
