// Package seed populates a local directory database with demo data.
package seed

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/absentiahq/absentia/internal/platform/config"
	apperrors "github.com/absentiahq/absentia/internal/platform/errors"
	"github.com/absentiahq/absentia/internal/platform/requestctx"
	"github.com/absentiahq/absentia/internal/services/directory"
	"github.com/absentiahq/absentia/internal/services/directory/absence"
	"github.com/absentiahq/absentia/internal/services/directory/employee"
	"github.com/absentiahq/absentia/internal/services/directory/storage/sqlite"
	"github.com/absentiahq/absentia/internal/services/directory/token"
)

// Config holds seed command configuration.
type Config struct {
	DBPath      string `env:"ABSENTIA_DIRECTORY_DB_PATH" envDefault:"absentia.db"`
	TokenSecret string `env:"ABSENTIA_TOKEN_SECRET" envDefault:"dev-secret"`

	Email       string
	Password    string
	CompanyName string
}

// ParseConfig loads env defaults and parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.Email = "owner@demo.test"
	cfg.Password = "demo-password"
	cfg.CompanyName = "Demo Company"

	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the SQLite database file")
	fs.StringVar(&cfg.Email, "email", cfg.Email, "Demo owner email")
	fs.StringVar(&cfg.Password, "password", cfg.Password, "Demo owner password")
	fs.StringVar(&cfg.CompanyName, "company", cfg.CompanyName, "Demo company name")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type demoEmployee struct {
	name     string
	position string
	absences []demoAbsence
}

type demoAbsence struct {
	kind     absence.Kind
	startDay int // days before today
	length   int
}

var demoRoster = []demoEmployee{
	{"Ada Fontaine", "Engineer", []demoAbsence{
		{absence.KindSick, 30, 3},
		{absence.KindVacation, 90, 10},
	}},
	{"Bram Okoye", "Designer", []demoAbsence{
		{absence.KindPersonal, 14, 1},
	}},
	{"Carla Mendes", "Support", []demoAbsence{
		{absence.KindSick, 7, 2},
		{absence.KindSick, 60, 1},
		{absence.KindUnpaid, 120, 5},
	}},
	{"Dmitri Valdez", "Operations", nil},
}

// Run seeds a demo company, owner, employees, and absences. Running against
// a database that already holds the demo owner is a no-op.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	signer, err := token.NewSigner([]byte(cfg.TokenSecret), "absentia", 0)
	if err != nil {
		return err
	}
	service, err := directory.NewService(directory.Config{
		Stores: directory.Stores{
			Identities: store,
			Sessions:   store,
			Companies:  store,
			Profiles:   store,
			Employees:  store,
			Absences:   store,
			Summaries:  store,
		},
		Tokens: signer,
	})
	if err != nil {
		return err
	}
	defer service.Close()

	session, err := service.SignUp(ctx, directory.SignUpInput{
		Email:       cfg.Email,
		Password:    cfg.Password,
		Name:        "Demo Owner",
		CompanyName: cfg.CompanyName,
	})
	if err != nil {
		if apperrors.GetCode(err) == apperrors.CodeAuthEmailInUse {
			fmt.Fprintf(out, "seed data already present for %s\n", cfg.Email)
			return nil
		}
		return fmt.Errorf("sign up demo owner: %w", err)
	}
	fmt.Fprintf(out, "created company %s with owner %s\n", session.CompanyID, cfg.Email)

	tenantCtx := requestctx.WithTenant(ctx, session.CompanyID, session.UserID)
	today := time.Now().UTC().Truncate(24 * time.Hour)
	for _, member := range demoRoster {
		created, err := service.CreateEmployee(tenantCtx, employee.CreateInput{
			Name:     member.name,
			Position: member.position,
		})
		if err != nil {
			return fmt.Errorf("create employee %s: %w", member.name, err)
		}
		for _, record := range member.absences {
			startsOn := today.AddDate(0, 0, -record.startDay)
			_, err := service.RecordAbsence(tenantCtx, absence.CreateInput{
				EmployeeID: created.ID,
				Kind:       record.kind,
				StartsOn:   startsOn,
				EndsOn:     startsOn.AddDate(0, 0, record.length-1),
			})
			if err != nil {
				return fmt.Errorf("record absence for %s: %w", member.name, err)
			}
		}
		fmt.Fprintf(out, "seeded employee %s (%d absences)\n", member.name, len(member.absences))
	}
	return nil
}
