package database

import (
	"context"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/harmix/assistant-api/internal/infrastructure/database/entities"
)

// IntegrationCatalog is the fixed set of connectable providers. Seeded on
// migration; rows are matched by slug so redeploys never duplicate them.
var IntegrationCatalog = []entities.Integration{
	{Name: "Google Gmail", Slug: "gmail", ImageURL: "gmail.png"},
	{Name: "Slack", Slug: "slack", ImageURL: "slack.png"},
	{Name: "Notion", Slug: "notion", ImageURL: "notion.png"},
	{Name: "HubSpot", Slug: "hubspot", ImageURL: "hubspot.png"},
	{Name: "Google Calendar", Slug: "googlecalendar", ImageURL: "google-calendar.png"},
	{Name: "Trello", Slug: "trello", ImageURL: "trello.png"},
}

// AutoMigrate applies database schema changes for all assistant domains and
// seeds the integration catalog.
func AutoMigrate(ctx context.Context, db *gorm.DB, log zerolog.Logger) error {
	if err := db.WithContext(ctx).AutoMigrate(
		&entities.User{},
		&entities.Conversation{},
		&entities.Message{},
		&entities.Workflow{},
		&entities.WorkflowRun{},
		&entities.Integration{},
		&entities.UserIntegration{},
	); err != nil {
		return err
	}

	if err := seedIntegrations(ctx, db); err != nil {
		return err
	}

	log.Info().Msg("database schema up to date")
	return nil
}

func seedIntegrations(ctx context.Context, db *gorm.DB) error {
	for _, row := range IntegrationCatalog {
		var existing entities.Integration
		err := db.WithContext(ctx).
			Where("slug = ?", row.Slug).
			Attrs(entities.Integration{Name: row.Name, Slug: row.Slug, ImageURL: row.ImageURL}).
			FirstOrCreate(&existing).Error
		if err != nil {
			return err
		}
	}
	return nil
}
