package events

// EventData is the interface that all event data types must implement
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// PortfolioChangedData contains data for PortfolioChanged events
type PortfolioChangedData struct {
	PortfolioID          string  `json:"portfolio_id"`
	TotalValue           float64 `json:"total_value"`
	TotalGainLossPercent float64 `json:"total_gain_loss_percent"`
	Removed              bool    `json:"removed"`
}

// EventType returns the event type for PortfolioChangedData
func (d *PortfolioChangedData) EventType() EventType {
	return PortfolioChanged
}

// HoldingChangedData contains data for HoldingChanged events
type HoldingChangedData struct {
	HoldingID    string  `json:"holding_id"`
	PortfolioID  string  `json:"portfolio_id"`
	Symbol       string  `json:"symbol"`
	Quantity     float64 `json:"quantity"`
	CurrentValue float64 `json:"current_value"`
}

// EventType returns the event type for HoldingChangedData
func (d *HoldingChangedData) EventType() EventType {
	return HoldingChanged
}

// HoldingRemovedData contains data for HoldingRemoved events
type HoldingRemovedData struct {
	HoldingID   string `json:"holding_id"`
	PortfolioID string `json:"portfolio_id"`
	Symbol      string `json:"symbol"`
}

// EventType returns the event type for HoldingRemovedData
func (d *HoldingRemovedData) EventType() EventType {
	return HoldingRemoved
}

// TransactionRecordedData contains data for TransactionRecorded events
type TransactionRecordedData struct {
	TransactionID string  `json:"transaction_id"`
	PortfolioID   string  `json:"portfolio_id"`
	HoldingID     string  `json:"holding_id,omitempty"`
	Type          string  `json:"type"`
	Symbol        string  `json:"symbol"`
	TotalAmount   float64 `json:"total_amount"`
}

// EventType returns the event type for TransactionRecordedData
func (d *TransactionRecordedData) EventType() EventType {
	return TransactionRecorded
}

// WatchlistChangedData contains data for WatchlistChanged events
type WatchlistChangedData struct {
	ItemID  string `json:"item_id"`
	Symbol  string `json:"symbol"`
	Removed bool   `json:"removed"`
}

// EventType returns the event type for WatchlistChangedData
func (d *WatchlistChangedData) EventType() EventType {
	return WatchlistChanged
}

// SelectionChangedData contains data for SelectionChanged events.
// An empty PortfolioID means the selection was cleared.
type SelectionChangedData struct {
	PortfolioID string `json:"portfolio_id"`
}

// EventType returns the event type for SelectionChangedData
func (d *SelectionChangedData) EventType() EventType {
	return SelectionChanged
}

// PricesUpdatedData contains data for PricesUpdated events
type PricesUpdatedData struct {
	Symbols    []string `json:"symbols"`
	Holdings   int      `json:"holdings"`
	Portfolios int      `json:"portfolios"`
}

// EventType returns the event type for PricesUpdatedData
func (d *PricesUpdatedData) EventType() EventType {
	return PricesUpdated
}

// DataLoadedData contains data for DataLoaded events
type DataLoadedData struct {
	PortfolioID  string `json:"portfolio_id,omitempty"` // empty for a full load
	Portfolios   int    `json:"portfolios"`
	Holdings     int    `json:"holdings"`
	Transactions int    `json:"transactions"`
}

// EventType returns the event type for DataLoadedData
func (d *DataLoadedData) EventType() EventType {
	return DataLoaded
}

// PersistenceFailedData contains data for PersistenceFailed events
type PersistenceFailedData struct {
	Operation string `json:"operation"`
	Entity    string `json:"entity"`
	ID        string `json:"id"`
	Error     string `json:"error"`
}

// EventType returns the event type for PersistenceFailedData
func (d *PersistenceFailedData) EventType() EventType {
	return PersistenceFailed
}

// SnapshotRecordedData contains data for SnapshotRecorded events
type SnapshotRecordedData struct {
	TotalValue float64 `json:"total_value"`
	Holdings   int     `json:"holdings"`
}

// EventType returns the event type for SnapshotRecordedData
func (d *SnapshotRecordedData) EventType() EventType {
	return SnapshotRecorded
}
