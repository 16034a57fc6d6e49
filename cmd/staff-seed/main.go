package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/koekemoer93/kart-force-sub000/internal/staff"
	"github.com/koekemoer93/kart-force-sub000/pkg/config"
	"github.com/koekemoer93/kart-force-sub000/pkg/db"
	"github.com/koekemoer93/kart-force-sub000/pkg/enums"
	"github.com/koekemoer93/kart-force-sub000/pkg/logger"
)

// staff-seed provisions staff accounts from the command line. There is no
// self-service registration surface; operators create accounts with this
// tool and hand out the credentials.
func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "staff-seed"})

	_ = godotenv.Load()

	track := flag.String("track", "", "track id the account belongs to")
	email := flag.String("email", "", "login email")
	name := flag.String("name", "", "display name")
	role := flag.String("role", string(enums.StaffRoleWorker), "staff role: admin|worker")
	password := flag.String("password", "", "initial password (or set KARTFORCE_SEED_PASSWORD)")

	flag.Parse()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "staff-seed",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	trackID, err := uuid.Parse(*track)
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid -track value:", *track)
		os.Exit(1)
	}
	staffRole, err := enums.ParseStaffRole(*role)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	pw := *password
	if pw == "" {
		pw = os.Getenv("KARTFORCE_SEED_PASSWORD")
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	svc, err := staff.NewService(staff.NewRepository(dbClient.DB()), cfg.JWT, cfg.Password)
	requireResource(ctx, logg, "staff service", err)

	user, err := svc.CreateUser(ctx, staff.CreateUserInput{
		TrackID:  trackID,
		Email:    *email,
		Name:     *name,
		Role:     staffRole,
		Password: pw,
	})
	if err != nil {
		logg.Error(ctx, "create staff user", err)
		os.Exit(1)
	}

	fmt.Printf("created %s account %s (%s)\n", user.Role, user.Email, user.ID)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
