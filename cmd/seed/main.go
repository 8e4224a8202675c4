package main

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"assurcore-backend/core-service/services"
	"assurcore-backend/shared/apperrors"
	"assurcore-backend/shared/config"
	"assurcore-backend/shared/database"
	"assurcore-backend/shared/database/models"
	"assurcore-backend/shared/events"
	"assurcore-backend/shared/logging"
	"assurcore-backend/shared/repositories"
	"assurcore-backend/shared/tenant"
)

// sampleOrganization is created under the previous entry of the sample list.
type sampleOrganization struct {
	name string
	code string
	kind models.OrganizationType
}

var sampleTree = []sampleOrganization{
	{name: "AssurCore Headquarters", code: "HQ", kind: models.OrganizationTypeInsuranceCompany},
	{name: "Northern Brokerage", code: "BR-NORTH", kind: models.OrganizationTypeBroker},
	{name: "Lille Office", code: "OF-LILLE", kind: models.OrganizationTypeAgent},
}

func main() {
	withSample := pflag.Bool("sample", true, "create the HQ, branch and office sample tree")
	pflag.Parse()

	cfg := config.LoadConfig()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	ctx := context.Background()

	db, err := database.InitDatabase(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	defer database.CloseDatabase()

	stores := repositories.NewGormStore(db)
	hierarchy := services.NewHierarchyService(stores, nil, log)
	dispatcher := events.NewDispatcher(log, events.NewAuditSink(db))
	organizations := services.NewOrganizationService(stores, hierarchy, services.NewTenantFilterResolver(hierarchy), dispatcher, log)

	tree := sampleTree
	if !*withSample {
		tree = sampleTree[:1]
	}

	var parentID *uuid.UUID
	var headquarters *models.Organization
	for _, sample := range tree {
		org, err := ensureOrganization(ctx, organizations, sample, parentID, log)
		if err != nil {
			log.WithError(err).WithField("code", sample.code).Fatal("failed to seed organization")
		}
		if headquarters == nil {
			headquarters = org
		}

		created, err := database.SeedDefaultRoles(ctx, db, org.ID)
		if err != nil {
			log.WithError(err).WithField("code", sample.code).Fatal("failed to seed roles")
		}
		log.WithFields(logrus.Fields{"code": org.Code, "roles_created": created}).Info("organization roles are up to date")
		parentID = &org.ID
	}

	admin := database.SuperAdmin{
		Email:          cfg.SuperAdminEmail,
		Password:       cfg.SuperAdminPassword,
		FirstName:      "Super",
		LastName:       "Admin",
		OrganizationID: headquarters.ID,
	}
	if err := database.CreateSuperAdmin(ctx, db, admin, log); err != nil {
		log.WithError(err).Fatal("failed to create super admin")
	}

	dispatcher.Wait()
	log.Info("database seeding completed")
}

// ensureOrganization returns the organization with the sample code, creating
// it through the organization service so its closure rows exist.
func ensureOrganization(ctx context.Context, organizations *services.OrganizationService, sample sampleOrganization, parentID *uuid.UUID, log *logrus.Logger) (*models.Organization, error) {
	org, err := organizations.GetOrganization(ctx, tenant.None(), services.GetOrganizationQuery{Code: sample.code})
	if err == nil {
		log.WithField("code", sample.code).Info("organization already exists")
		return org, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	org, err = organizations.CreateOrganization(ctx, tenant.None(), services.CreateOrganizationCommand{
		Name:     sample.name,
		Code:     sample.code,
		Type:     sample.kind,
		Country:  "FR",
		ParentID: parentID,
	})
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{"code": org.Code, "organization_id": org.ID}).Info("organization created")
	return org, nil
}
