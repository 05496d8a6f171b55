package db

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/LucasMargets11/morrisonv2/internal/repository/migrate"
)

// MigrateDb creates the DynamoDB image catalog table.
func (d *DynamoDb) MigrateDb(ctx context.Context, table string) error {
	m := &migrate.CreateImageRecordsTable{Table: table}
	log.Infof("Applying migration %s to %s", m.Version(), m.TableName())
	if err := m.Up(ctx, d.Client); err != nil {
		return fmt.Errorf("migration %s failed: %w", m.Version(), err)
	}
	return nil
}

// MigrateDown deletes the DynamoDB image catalog table.
func (d *DynamoDb) MigrateDown(ctx context.Context, table string) error {
	m := &migrate.CreateImageRecordsTable{Table: table}
	log.Infof("Rolling back migration %s on %s", m.Version(), m.TableName())
	if err := m.Down(ctx, d.Client); err != nil {
		return fmt.Errorf("rollback of %s failed: %w", m.Version(), err)
	}
	return nil
}
