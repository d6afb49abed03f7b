package models

// Summary defines the dashboard figures. Keys are camelCase to match what
// dashboard clients already read.
type Summary struct {
	TotalProducts       int     `json:"totalProducts"`
	OutOfStock          int     `json:"outOfStock"`
	LowStock            int     `json:"lowStock"`
	TodaysSales         float64 `json:"todaysSales"`
	TotalInventoryValue float64 `json:"totalInventoryValue"`
	AdminCount          int     `json:"adminCount"`
	PendingOrders       int     `json:"pendingOrders"`
	CompletedOrders     int     `json:"completedOrders"`
}
