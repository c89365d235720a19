package database

import (
	"testing"

	"github.com/ManuelReschke/freelancedesk/app/models"
	"github.com/ManuelReschke/freelancedesk/internal/pkg/env"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestAutoMigrateCreatesBillingTables(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, AutoMigrate(db))

	for _, model := range []interface{}{
		&models.Profile{},
		&models.SubscriptionPlan{},
		&models.Subscription{},
		&models.BillingEvent{},
		&models.BillingWebhookEvent{},
	} {
		assert.True(t, db.Migrator().HasTable(model))
	}
	assert.True(t, db.Migrator().HasIndex(&models.Subscription{}, "ux_subscriptions_user_provider_sub"))
	assert.True(t, db.Migrator().HasIndex(&models.BillingWebhookEvent{}, "ux_billing_webhook_events_provider_event"))
}

func TestDSNUsesPort(t *testing.T) {
	env.Env = map[string]string{
		"DB_USER": "fd", "DB_PASSWORD": "secret", "DB_HOST": "db", "DB_PORT": "3307", "DB_NAME": "freelancedesk",
	}
	defer func() { env.Env = nil }()

	assert.Equal(t, "fd:secret@tcp(db:3307)/freelancedesk?charset=utf8mb4&parseTime=True&loc=UTC", DSN())
}

func TestGetDBPanicsBeforeSetup(t *testing.T) {
	DB = nil
	assert.Panics(t, func() { GetDB() })
}
