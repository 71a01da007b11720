package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"portfolio-rebalancer/rebalance"
)

// Portfolio is the persisted result of the latest rebalance run. The
// recommendation set, holdings and targets are replaced wholesale on
// every update; rows are never deleted.
type Portfolio struct {
	gorm.Model
	UserID            *uint             `gorm:"index" json:"user_id"`
	TotalValue        float64           `json:"total_value"`
	CashBufferPercent float64           `json:"cash_buffer"`
	Holdings          HoldingList       `gorm:"type:jsonb" json:"holdings"`
	Targets           TargetList        `gorm:"type:jsonb" json:"targets"`
	Recommendations   RecommendationMap `gorm:"type:jsonb" json:"recommendations"`
}

// PerformanceSnapshot is one timestamped valuation of a portfolio.
// Rows are append-only; PortfolioID references a Portfolio without
// owning it.
type PerformanceSnapshot struct {
	gorm.Model
	PortfolioID uint      `gorm:"index"`
	TotalValue  float64
	Timestamp   time.Time `gorm:"index"`
}

// RecommendationMap stores the per-symbol recommendations as a JSON column.
type RecommendationMap map[string]rebalance.Recommendation

func (m RecommendationMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *RecommendationMap) Scan(value interface{}) error {
	return scanJSON(value, m)
}

// HoldingList stores the holdings of the last rebalance request as JSON,
// so a portfolio can be revalued later without resubmitting them.
type HoldingList []rebalance.Holding

func (l HoldingList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

func (l *HoldingList) Scan(value interface{}) error {
	return scanJSON(value, l)
}

// TargetList stores the target allocations of the last rebalance request.
type TargetList []rebalance.TargetAllocation

func (l TargetList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

func (l *TargetList) Scan(value interface{}) error {
	return scanJSON(value, l)
}

func scanJSON(value interface{}, dest interface{}) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("unsupported column type %T", value)
	}
}
