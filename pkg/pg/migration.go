package pg

import (
	"fmt"

	_ "github.com/lib/pq"
	"github.com/nimasrn/laser/pkg/logger"
	"github.com/pressly/goose/v3"
)

// Migrate applies goose migrations from dir. Direction is "up", "down" or "status".
func Migrate(cfg Config, dir string, direction string) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	db, err := newSqlConnection(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	logger.Info("running migrations", "dir", dir, "direction", direction)
	switch direction {
	case "", "up":
		return goose.Up(db, dir)
	case "down":
		return goose.Down(db, dir)
	case "status":
		return goose.Status(db, dir)
	default:
		return fmt.Errorf("unknown migration direction %q", direction)
	}
}
