package database

import (
	"context"

	"gorm.io/gorm"

	"github.com/sandeepkv93/account-lifecycle-service/internal/domain"
)

// Models lists the persisted account models in dependency order: one-time
// codes reference users.
func Models() []any {
	return []any{
		&domain.User{},
		&domain.OneTimePassword{},
		&domain.RevokedToken{},
	}
}

// TableNames returns the table names of Models as resolved by gorm's naming
// strategy.
func TableNames(db *gorm.DB) ([]string, error) {
	names := make([]string, 0, len(Models()))
	for _, m := range Models() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(m); err != nil {
			return nil, err
		}
		names = append(names, stmt.Schema.Table)
	}
	return names, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

// PendingTables reports the tables Migrate would create. Column changes on
// existing tables are not reported.
func PendingTables(ctx context.Context, db *gorm.DB) ([]string, error) {
	names, err := TableNames(db)
	if err != nil {
		return nil, err
	}
	migrator := db.WithContext(ctx).Migrator()
	var pending []string
	for _, name := range names {
		if !migrator.HasTable(name) {
			pending = append(pending, name)
		}
	}
	return pending, nil
}
