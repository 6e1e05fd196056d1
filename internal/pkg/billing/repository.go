package billing

import (
	"errors"
	"time"

	"github.com/soundhaven/soundhaven/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the billing service.
type Repository interface {
	GetUserByID(id uint) (*models.User, error)
	GetUserByCustomerID(customerID string) (*models.User, error)
	SetStripeCustomerID(userID uint, customerID string) error
	ApplySubscriptionState(userID uint, state SubscriptionState) error
	MarkTrialUsed(userID uint, periodEnd time.Time) error
	CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkWebhookProcessed(id uint, note, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *gormRepository) GetUserByCustomerID(customerID string) (*models.User, error) {
	var user models.User
	err := r.db.Where("stripe_customer_id = ?", customerID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// SetStripeCustomerID persists the lazily created customer linkage. The
// guard keeps an existing linkage from being overwritten by a late write.
func (r *gormRepository) SetStripeCustomerID(userID uint, customerID string) error {
	return r.db.Model(&models.User{}).
		Where("id = ? AND (stripe_customer_id = '' OR stripe_customer_id IS NULL)", userID).
		Update("stripe_customer_id", customerID).Error
}

// ApplySubscriptionState merge-writes only the fields present in state.
// Unrelated user columns are never touched; writing the same state twice
// yields the same stored record.
func (r *gormRepository) ApplySubscriptionState(userID uint, state SubscriptionState) error {
	updates := map[string]interface{}{}
	if state.Plan != "" {
		updates["plan"] = state.Plan
	}
	if state.Status != "" {
		updates["subscription_status"] = state.Status
	}
	if state.ClearPeriodEnd {
		updates["subscription_end_date"] = gorm.Expr("NULL")
	} else if state.PeriodEnd != nil {
		updates["subscription_end_date"] = state.PeriodEnd
	}
	if state.CustomerID != "" {
		updates["stripe_customer_id"] = state.CustomerID
	}
	if state.SubscriptionID != "" {
		updates["stripe_subscription_id"] = state.SubscriptionID
	}
	if state.LastRefundID != "" {
		updates["last_refund_id"] = state.LastRefundID
	}
	if state.LastRefundAmount != nil {
		updates["last_refund_amount"] = *state.LastRefundAmount
	}
	if len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error
}

// MarkTrialUsed flips the one-way trial flag and activates the trial plan in
// a single conditional update. The trial_used guard makes the false->true
// transition happen at most once per user.
func (r *gormRepository) MarkTrialUsed(userID uint, periodEnd time.Time) error {
	tx := r.db.Model(&models.User{}).
		Where("id = ? AND trial_used = ?", userID, false).
		Updates(map[string]interface{}{
			"plan":                  "trial",
			"subscription_status":   models.BillingStatusTrialing,
			"subscription_end_date": periodEnd,
			"trial_used":            true,
		})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		var user models.User
		if err := r.db.First(&user, userID).Error; err != nil {
			return err
		}
		if user.TrialUsed {
			return ErrTrialAlreadyUsed
		}
		return errors.New("trial activation affected no rows")
	}
	return nil
}

// CreateWebhookEventIfNotExists inserts the event marker atomically; the
// conditional insert is what makes duplicate deliveries no-ops even when
// they race.
func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.BillingWebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, note, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_note":  note,
		"processing_error": processingError,
	}
	return r.db.Model(&models.BillingWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
