// canteenctl is the operator tool for the canteen service: it flips the
// portal override, creates dashboard users and loads reference data.
//
//	canteenctl override open|close|normal|status --operator NAME
//	canteenctl user add --username U --password P --name N
//	canteenctl seed --file seed.yaml
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	_ "time/tzdata"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"

	"backend-kantin/internal/config"
	"backend-kantin/internal/models"
	"backend-kantin/internal/schedule"
	"backend-kantin/internal/store"
)

const usage = `usage:
  canteenctl override open|close|normal|status --operator NAME
  canteenctl user add --username U --password P --name N
  canteenctl seed --file seed.yaml`

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintln(os.Stderr, usage)
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return pflag.ErrHelp
	}

	envErr := config.LoadEnv()
	settings := config.Load()
	logger := config.NewLogger(settings.LogLevel, settings.LogFormat)
	if envErr != nil {
		logger.WithError(envErr).Debug(".env tidak ditemukan, pakai env system")
	}

	ctx := context.Background()
	db, err := config.OpenDB(ctx, settings)
	if err != nil {
		return err
	}
	defer db.Close()

	st := store.New(db, settings.DBDriver)
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	switch args[0] {
	case "override":
		return runOverride(ctx, st, settings, logger, args[1:])
	case "user":
		return runUser(ctx, st, args[1:])
	case "seed":
		return runSeed(ctx, st, logger, args[1:])
	case "help", "-h", "--help":
		return pflag.ErrHelp
	}
	return fmt.Errorf("perintah tidak dikenal: %q\n%s", args[0], usage)
}

func runOverride(ctx context.Context, st *store.Store, settings config.Settings, logger *logrus.Logger, args []string) error {
	var operator string
	flagSet := pflag.NewFlagSet("override", pflag.ContinueOnError)
	flagSet.StringVar(&operator, "operator", "", "nama operator yang mengubah mode")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	rest := flagSet.Args()
	if len(rest) != 1 {
		return pflag.ErrHelp
	}

	if strings.ToLower(rest[0]) != "status" {
		mode, ok := models.ParseOverrideMode(rest[0])
		if !ok {
			return fmt.Errorf("mode harus open, close, normal atau status")
		}
		if strings.TrimSpace(operator) == "" {
			return fmt.Errorf("--operator wajib diisi")
		}
		entry, err := st.SetOverride(ctx, mode, operator, schedule.RealClock().Now())
		if err != nil {
			return err
		}
		fmt.Printf("mode %s oleh %s\n", entry.Mode, entry.ChangedBy)
	}

	sched, err := schedule.Load(settings.Sessions, settings.Timezone)
	if err != nil {
		return err
	}
	status := schedule.NewResolver(sched, st, schedule.RealClock(), logger).Resolve(ctx)

	state := "TUTUP"
	if status.IsOpen {
		state = "BUKA"
	}
	fmt.Printf("%s (%s) sesi %s, %s\n", state, status.Reason, status.SessionID, status.Message)
	return nil
}

func runUser(ctx context.Context, st *store.Store, args []string) error {
	if len(args) == 0 || args[0] != "add" {
		return pflag.ErrHelp
	}

	var username, password, name, role string
	flagSet := pflag.NewFlagSet("user add", pflag.ContinueOnError)
	flagSet.StringVar(&username, "username", "", "username login dashboard")
	flagSet.StringVar(&password, "password", "", "password (disimpan sebagai bcrypt)")
	flagSet.StringVar(&name, "name", "", "nama tampilan")
	flagSet.StringVar(&role, "role", models.RoleSuperUser, "role user")
	if err := flagSet.Parse(args[1:]); err != nil {
		return err
	}
	if username == "" || password == "" {
		return fmt.Errorf("--username dan --password wajib diisi")
	}
	if name == "" {
		name = username
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	id, err := st.CreateUser(ctx, models.User{
		Username: username,
		Name:     name,
		Password: string(hash),
		Role:     role,
	})
	if errors.Is(err, store.ErrConflict) {
		return fmt.Errorf("username %q sudah dipakai", username)
	}
	if err != nil {
		return err
	}
	fmt.Printf("user %s dibuat (id %d)\n", username, id)
	return nil
}

func runSeed(ctx context.Context, st *store.Store, logger *logrus.Logger, args []string) error {
	var file string
	flagSet := pflag.NewFlagSet("seed", pflag.ContinueOnError)
	flagSet.StringVarP(&file, "file", "f", "seed.yaml", "file YAML data referensi")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	raw, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	seed, err := parseSeed(raw)
	if err != nil {
		return err
	}

	report, err := applySeed(ctx, st, seed, logger)
	if err != nil {
		return err
	}
	fmt.Printf("pegawai %d, tenant %d, device %d, dilewati %d\n",
		report.Employees, report.Tenants, report.Devices, report.Skipped)
	return nil
}
