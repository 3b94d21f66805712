package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"backend-kantin/internal/models"
	"backend-kantin/internal/store"
)

type seedFile struct {
	Employees []seedEmployee `yaml:"employees"`
	Tenants   []seedTenant   `yaml:"tenants"`
	// Devices tanpa tenant, terdaftar tapi belum terhubung
	Devices []string `yaml:"devices"`
}

type seedEmployee struct {
	EmployeeID string `yaml:"employee_id"`
	CardNumber string `yaml:"card_number"`
	Name       string `yaml:"name"`
	Group      string `yaml:"group"`
	Email      string `yaml:"email"`
	Disabled   bool   `yaml:"disabled"`
}

type seedTenant struct {
	Name             string   `yaml:"name"`
	Quota            int      `yaml:"quota"`
	Limited          *bool    `yaml:"limited"`
	VerificationCode string   `yaml:"verification_code"`
	Menu             []string `yaml:"menu"`
	Devices          []string `yaml:"devices"`
}

type seedReport struct {
	Employees int
	Tenants   int
	Devices   int
	Skipped   int
}

func parseSeed(raw []byte) (seedFile, error) {
	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return seed, fmt.Errorf("seed: %w", err)
	}
	for i, e := range seed.Employees {
		if strings.TrimSpace(e.EmployeeID) == "" || strings.TrimSpace(e.CardNumber) == "" {
			return seed, fmt.Errorf("seed: pegawai ke-%d tanpa employee_id atau card_number", i+1)
		}
	}
	for i, t := range seed.Tenants {
		if strings.TrimSpace(t.Name) == "" {
			return seed, fmt.Errorf("seed: tenant ke-%d tanpa nama", i+1)
		}
		if t.Quota < 0 {
			return seed, fmt.Errorf("seed: kuota tenant %q negatif", t.Name)
		}
	}
	return seed, nil
}

// applySeed - data yang sudah ada (bentrok unik) dilewati, bukan error
func applySeed(ctx context.Context, st *store.Store, seed seedFile, logger *logrus.Logger) (seedReport, error) {
	var report seedReport

	for _, e := range seed.Employees {
		group := e.Group
		if group == "" {
			group = "Umum"
		}
		_, err := st.InsertEmployee(ctx, models.Employee{
			EmployeeID:    strings.TrimSpace(e.EmployeeID),
			CardNumber:    strings.TrimSpace(e.CardNumber),
			Name:          e.Name,
			EmployeeGroup: group,
			Email:         e.Email,
			IsDisabled:    e.Disabled,
		})
		if errors.Is(err, store.ErrConflict) {
			logger.WithField("employee_id", e.EmployeeID).Warn("pegawai sudah ada, dilewati")
			report.Skipped++
			continue
		}
		if err != nil {
			return report, err
		}
		report.Employees++
	}

	for _, t := range seed.Tenants {
		limited := true
		if t.Limited != nil {
			limited = *t.Limited
		}
		id, err := st.InsertTenant(ctx, models.Tenant{
			Name:             t.Name,
			Quota:            t.Quota,
			IsLimited:        limited,
			VerificationCode: t.VerificationCode,
			Menu:             t.Menu,
		})
		if errors.Is(err, store.ErrConflict) {
			logger.WithField("tenant", t.Name).Warn("tenant bentrok, dilewati")
			report.Skipped++
			continue
		}
		if err != nil {
			return report, err
		}
		report.Tenants++

		for _, code := range t.Devices {
			if err := st.BindDevice(ctx, code, &id); err != nil {
				return report, err
			}
			report.Devices++
		}
	}

	for _, code := range seed.Devices {
		if _, err := st.DeviceByCode(ctx, code); err == nil {
			report.Skipped++
			continue
		}
		if err := st.BindDevice(ctx, code, nil); err != nil {
			return report, err
		}
		report.Devices++
	}
	return report, nil
}
