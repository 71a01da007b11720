// Package database persists portfolios and their performance time series.
package database

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"portfolio-rebalancer/models"
)

// ErrNotFound reports a portfolio, user or performance series that does
// not exist in the store.
var ErrNotFound = errors.New("not found")

// Store wraps the database handle with the portfolio operations. All
// writes for one portfolio happen inside a single transaction.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// CreateOrUpdate persists the outcome of one rebalance run. With a nil
// portfolioID it creates a new portfolio; otherwise it overwrites the
// existing row wholesale. Either way exactly one performance snapshot is
// appended; this method is the sole writer of the snapshot series. On
// error nothing is written.
func (s *Store) CreateOrUpdate(portfolioID *uint, userID *uint, totalValue, cashBuffer float64, holdings models.HoldingList, targets models.TargetList, recommendations models.RecommendationMap) (models.Portfolio, error) {
	var portfolio models.Portfolio

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()
	if tx.Error != nil {
		return models.Portfolio{}, tx.Error
	}

	if portfolioID == nil {
		portfolio = models.Portfolio{
			UserID:            userID,
			TotalValue:        totalValue,
			CashBufferPercent: cashBuffer,
			Holdings:          holdings,
			Targets:           targets,
			Recommendations:   recommendations,
		}
		if err := tx.Create(&portfolio).Error; err != nil {
			tx.Rollback()
			return models.Portfolio{}, fmt.Errorf("create portfolio: %w", err)
		}
	} else {
		if err := tx.First(&portfolio, *portfolioID).Error; err != nil {
			tx.Rollback()
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.Portfolio{}, ErrNotFound
			}
			return models.Portfolio{}, err
		}
		portfolio.TotalValue = totalValue
		portfolio.CashBufferPercent = cashBuffer
		portfolio.Holdings = holdings
		portfolio.Targets = targets
		portfolio.Recommendations = recommendations
		if err := tx.Save(&portfolio).Error; err != nil {
			tx.Rollback()
			return models.Portfolio{}, fmt.Errorf("update portfolio: %w", err)
		}
	}

	snapshot := models.PerformanceSnapshot{
		PortfolioID: portfolio.ID,
		TotalValue:  totalValue,
		Timestamp:   time.Now(),
	}
	if err := tx.Create(&snapshot).Error; err != nil {
		tx.Rollback()
		return models.Portfolio{}, fmt.Errorf("record performance: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return models.Portfolio{}, err
	}
	return portfolio, nil
}

// GetPerformance returns the snapshot series for a portfolio, ascending
// by timestamp. A portfolio with no snapshots reports ErrNotFound.
func (s *Store) GetPerformance(portfolioID uint) ([]models.PerformanceSnapshot, error) {
	var snapshots []models.PerformanceSnapshot
	err := s.db.
		Where("portfolio_id = ?", portfolioID).
		Order("timestamp asc").
		Find(&snapshots).Error
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, ErrNotFound
	}
	return snapshots, nil
}

// List returns every portfolio.
func (s *Store) List() ([]models.Portfolio, error) {
	var portfolios []models.Portfolio
	if err := s.db.Find(&portfolios).Error; err != nil {
		return nil, err
	}
	return portfolios, nil
}

// ListByUser returns the portfolios owned by one user; a user with none
// reports ErrNotFound.
func (s *Store) ListByUser(userID uint) ([]models.Portfolio, error) {
	var portfolios []models.Portfolio
	if err := s.db.Where("user_id = ?", userID).Find(&portfolios).Error; err != nil {
		return nil, err
	}
	if len(portfolios) == 0 {
		return nil, ErrNotFound
	}
	return portfolios, nil
}

// SavePriceHistory inserts price rows in chunks inside one transaction.
func (s *Store) SavePriceHistory(entries []models.StockPrice, batchSize int) error {
	if batchSize <= 0 {
		return errors.New("invalid batch size")
	}
	if len(entries) == 0 {
		return nil
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()
	if tx.Error != nil {
		return tx.Error
	}

	for i := 0; i < len(entries); i += batchSize {
		end := i + batchSize
		if end > len(entries) {
			end = len(entries)
		}
		chunk := entries[i:end]
		if err := tx.Create(&chunk).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("batch insert failed: %w", err)
		}
	}

	return tx.Commit().Error
}

// SavePrice records a single resolved quote.
func (s *Store) SavePrice(symbol string, price float64) error {
	entry := models.StockPrice{
		Symbol:    symbol,
		Price:     price,
		Timestamp: time.Now(),
	}
	return s.db.Create(&entry).Error
}
