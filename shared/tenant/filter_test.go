package tenant

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"assurcore-backend/shared/apperrors"
)

type ownedRecord struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Status         string
}

func (ownedRecord) TableName() string { return "owned_records" }

func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	sqlDB, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)
	return db
}

func listSQL(db *gorm.DB, f Filter) (string, []interface{}) {
	var rows []ownedRecord
	stmt := db.Model(&ownedRecord{}).
		Where("status = ?", "ACTIVE").
		Scopes(f.Scope("organization_id")).
		Find(&rows).Statement
	return stmt.SQL.String(), stmt.Vars
}

func TestFilterScope_SelfOnly(t *testing.T) {
	db := dryRunDB(t)
	orgID := uuid.New()

	sql, vars := listSQL(db, SelfOnly(orgID))

	require.Contains(t, sql, `FROM "owned_records"`)
	require.Contains(t, sql, "status = $1 AND organization_id = $2")
	require.Equal(t, []interface{}{"ACTIVE", orgID}, vars)
}

func TestFilterScope_Set(t *testing.T) {
	db := dryRunDB(t)
	a, b := uuid.New(), uuid.New()

	sql, vars := listSQL(db, InSet([]uuid.UUID{a, b}))

	require.Contains(t, sql, "status = $1 AND organization_id IN ($2,$3)")
	require.Equal(t, []interface{}{"ACTIVE", a, b}, vars)
}

func TestFilterScope_EmptySetMatchesNothing(t *testing.T) {
	db := dryRunDB(t)

	sql, _ := listSQL(db, InSet(nil))

	require.Contains(t, sql, "1 = 0")
}

func TestFilterScope_Unrestricted(t *testing.T) {
	db := dryRunDB(t)

	sql, vars := listSQL(db, Unrestricted())

	require.NotContains(t, sql, "organization_id")
	require.Equal(t, []interface{}{"ACTIVE"}, vars)
}

func TestFilterMatches(t *testing.T) {
	self, child, sibling := uuid.New(), uuid.New(), uuid.New()

	selfOnly := SelfOnly(self)
	require.True(t, selfOnly.Matches(self))
	require.False(t, selfOnly.Matches(child))
	require.False(t, selfOnly.Matches(sibling))

	visible := InSet([]uuid.UUID{self, child})
	require.True(t, visible.Matches(child))
	require.False(t, visible.Matches(sibling))
	require.ElementsMatch(t, []uuid.UUID{self, child}, visible.OrganizationIDs())

	require.True(t, Unrestricted().Matches(sibling))
	require.False(t, Unrestricted().IsRestricted())
	require.Nil(t, Unrestricted().OrganizationIDs())
}

func TestInSet_CopiesInput(t *testing.T) {
	ids := []uuid.UUID{uuid.New()}
	f := InSet(ids)
	ids[0] = uuid.New()

	require.False(t, f.Matches(ids[0]))
}

func TestContextRequire(t *testing.T) {
	err := None().Require("updateOrganization")
	require.ErrorIs(t, err, apperrors.ErrTenantRequired)

	userID := uuid.New()
	tc := For(uuid.New(), &userID)
	require.NoError(t, tc.Require("updateOrganization"))
	require.Equal(t, &userID, tc.Actor())
}
