package access_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vani-hq/vani/internal/access"
	"github.com/vani-hq/vani/internal/database/models"
	"github.com/vani-hq/vani/internal/testutil"
)

func TestAuthorize_SuperUserBypassesEverything(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	svc := access.NewService(tc.DB)
	ctx := testutil.TestContext(t)

	fmcg := testutil.CreateTestIndustry(t, tc.DB, "FMCG")

	user, decision, err := svc.Authorize(ctx, tc.SuperUser.ID, models.UseCaseTargetManagement, &fmcg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleSuperUser, user.Role)
	assert.True(t, decision.AllIndustries)
}

func TestAuthorize_NoGrantIsDenied(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	svc := access.NewService(tc.DB)
	ctx := testutil.TestContext(t)

	user := testutil.CreateTestUser(t, tc.DB, models.RoleStandard, nil)

	_, _, err := svc.Authorize(ctx, user.ID, models.UseCaseTargetManagement, nil)
	assert.ErrorIs(t, err, access.ErrPermissionDenied)
}

func TestAuthorize_IndustryGrantCoversOnlyThatIndustry(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	svc := access.NewService(tc.DB)
	ctx := testutil.TestContext(t)

	fmcg := testutil.CreateTestIndustry(t, tc.DB, "FMCG")
	fintech := testutil.CreateTestIndustry(t, tc.DB, "Fintech")
	user := testutil.CreateTestUser(t, tc.DB, models.RoleStandard, nil)
	testutil.GrantUseCase(t, tc.DB, user, tc.UseCases[models.UseCaseTargetManagement], fmcg, tc.SuperUser)

	_, decision, err := svc.Authorize(ctx, user.ID, models.UseCaseTargetManagement, &fmcg.ID)
	require.NoError(t, err)
	assert.False(t, decision.AllIndustries)
	assert.True(t, decision.Covers(fmcg.ID))
	assert.False(t, decision.Covers(fintech.ID))

	// The grant exists but does not reach the other industry.
	_, _, err = svc.Authorize(ctx, user.ID, models.UseCaseTargetManagement, &fintech.ID)
	assert.ErrorIs(t, err, access.ErrIndustryAccessDenied)
}

func TestAuthorize_GrantsAreUseCaseSpecific(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	svc := access.NewService(tc.DB)
	ctx := testutil.TestContext(t)

	fmcg := testutil.CreateTestIndustry(t, tc.DB, "FMCG")
	user := testutil.CreateTestUser(t, tc.DB, models.RoleStandard, nil)
	testutil.GrantUseCase(t, tc.DB, user, tc.UseCases[models.UseCaseTargetManagement], fmcg, tc.SuperUser)

	// Holding target management says nothing about outreach.
	_, _, err := svc.Authorize(ctx, user.ID, models.UseCaseOutreach, &fmcg.ID)
	assert.ErrorIs(t, err, access.ErrPermissionDenied)
}

func TestAuthorize_GlobalGrantConfersAllIndustries(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	svc := access.NewService(tc.DB)
	ctx := testutil.TestContext(t)

	fmcg := testutil.CreateTestIndustry(t, tc.DB, "FMCG")
	user := testutil.CreateTestUser(t, tc.DB, models.RoleStandard, nil)
	testutil.GrantUseCase(t, tc.DB, user, tc.UseCases[models.UseCaseTargetManagement], nil, tc.SuperUser)

	_, decision, err := svc.Authorize(ctx, user.ID, models.UseCaseTargetManagement, &fmcg.ID)
	require.NoError(t, err)
	assert.True(t, decision.AllIndustries)
}

func TestAuthorize_GlobalGrantDominatesIndustryGrant(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	svc := access.NewService(tc.DB)
	ctx := testutil.TestContext(t)

	fmcg := testutil.CreateTestIndustry(t, tc.DB, "FMCG")
	user := testutil.CreateTestUser(t, tc.DB, models.RoleStandard, nil)
	testutil.GrantUseCase(t, tc.DB, user, tc.UseCases[models.UseCaseTargetManagement], fmcg, tc.SuperUser)
	testutil.GrantUseCase(t, tc.DB, user, tc.UseCases[models.UseCaseTargetManagement], nil, tc.SuperUser)

	_, decision, err := svc.Authorize(ctx, user.ID, models.UseCaseTargetManagement, nil)
	require.NoError(t, err)
	assert.True(t, decision.AllIndustries)
}

func TestAuthorize_IndustryAdminClampedToAssignment(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	svc := access.NewService(tc.DB)
	ctx := testutil.TestContext(t)

	fmcg := testutil.CreateTestIndustry(t, tc.DB, "FMCG")
	fintech := testutil.CreateTestIndustry(t, tc.DB, "Fintech")
	admin := testutil.CreateTestUser(t, tc.DB, models.RoleIndustryAdmin, fmcg)

	// Even a global grant cannot widen an admin past their assignment.
	testutil.GrantUseCase(t, tc.DB, admin, tc.UseCases[models.UseCaseTargetManagement], nil, tc.SuperUser)

	_, decision, err := svc.Authorize(ctx, admin.ID, models.UseCaseTargetManagement, &fmcg.ID)
	require.NoError(t, err)
	assert.False(t, decision.AllIndustries)
	assert.True(t, decision.Covers(fmcg.ID))
	assert.False(t, decision.Covers(fintech.ID))

	_, _, err = svc.Authorize(ctx, admin.ID, models.UseCaseTargetManagement, &fintech.ID)
	assert.ErrorIs(t, err, access.ErrIndustryAccessDenied)
}

func TestAuthorize_AdminWithoutAssignmentSeesNoIndustries(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	svc := access.NewService(tc.DB)
	ctx := testutil.TestContext(t)

	fmcg := testutil.CreateTestIndustry(t, tc.DB, "FMCG")
	admin := testutil.CreateTestUser(t, tc.DB, models.RoleIndustryAdmin, nil)
	testutil.GrantUseCase(t, tc.DB, admin, tc.UseCases[models.UseCaseTargetManagement], nil, tc.SuperUser)

	_, decision, err := svc.Authorize(ctx, admin.ID, models.UseCaseTargetManagement, nil)
	require.NoError(t, err)
	assert.False(t, decision.AllIndustries)
	assert.False(t, decision.Covers(fmcg.ID))
}

func TestAuthorize_InactiveUserDenied(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	svc := access.NewService(tc.DB)
	ctx := testutil.TestContext(t)

	user := testutil.CreateTestUser(t, tc.DB, models.RoleStandard, nil)
	require.NoError(t, tc.DB.Model(user).Update("is_active", false).Error)

	_, _, err := svc.Authorize(ctx, user.ID, models.UseCaseTargetManagement, nil)
	assert.ErrorIs(t, err, access.ErrPermissionDenied)
}

func TestScope_UnscopedRecordsVisibleToGrantHolders(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	svc := access.NewService(tc.DB)
	ctx := testutil.TestContext(t)

	fmcg := testutil.CreateTestIndustry(t, tc.DB, "FMCG")
	fintech := testutil.CreateTestIndustry(t, tc.DB, "Fintech")
	user := testutil.CreateTestUser(t, tc.DB, models.RoleStandard, nil)
	testutil.GrantUseCase(t, tc.DB, user, tc.UseCases[models.UseCaseTargetManagement], fmcg, tc.SuperUser)

	testutil.CreateTestTarget(t, tc.DB, fmcg, tc.SuperUser, "In Scope")
	testutil.CreateTestTarget(t, tc.DB, fintech, tc.SuperUser, "Out Of Scope")
	testutil.CreateTestTarget(t, tc.DB, nil, tc.SuperUser, "Unscoped")

	_, decision, err := svc.Authorize(ctx, user.ID, models.UseCaseTargetManagement, nil)
	require.NoError(t, err)

	var targets []models.Target
	require.NoError(t, decision.Scope(tc.DB.Model(&models.Target{})).Find(&targets).Error)

	names := make(map[string]bool)
	for _, target := range targets {
		names[target.Name] = true
	}
	assert.True(t, names["In Scope"])
	assert.True(t, names["Unscoped"])
	assert.False(t, names["Out Of Scope"])
}

func TestSwitchIndustry(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	svc := access.NewService(tc.DB)
	ctx := testutil.TestContext(t)

	fmcg := testutil.CreateTestIndustry(t, tc.DB, "FMCG")
	fintech := testutil.CreateTestIndustry(t, tc.DB, "Fintech")
	user := testutil.CreateTestUser(t, tc.DB, models.RoleStandard, nil)
	testutil.GrantUseCase(t, tc.DB, user, tc.UseCases[models.UseCaseTargetManagement], fmcg, tc.SuperUser)

	t.Run("switch to granted industry", func(t *testing.T) {
		industry, err := svc.SwitchIndustry(ctx, user.ID, &fmcg.ID)
		require.NoError(t, err)
		assert.Equal(t, fmcg.ID, industry.ID)
	})

	t.Run("switch to ungranted industry denied", func(t *testing.T) {
		_, err := svc.SwitchIndustry(ctx, user.ID, &fintech.ID)
		assert.ErrorIs(t, err, access.ErrIndustryAccessDenied)
	})

	t.Run("all view requires unrestricted visibility", func(t *testing.T) {
		_, err := svc.SwitchIndustry(ctx, user.ID, nil)
		assert.ErrorIs(t, err, access.ErrIndustryAccessDenied)

		industry, err := svc.SwitchIndustry(ctx, tc.SuperUser.ID, nil)
		require.NoError(t, err)
		assert.Nil(t, industry)
	})

	t.Run("nonexistent industry looks like denial", func(t *testing.T) {
		missing := uuid.New()
		_, err := svc.SwitchIndustry(ctx, user.ID, &missing)
		assert.ErrorIs(t, err, access.ErrIndustryAccessDenied)
	})
}

func TestDeriveIndustry(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	svc := access.NewService(tc.DB)
	ctx := testutil.TestContext(t)

	fmcg := testutil.CreateTestIndustry(t, tc.DB, "FMCG")
	fintech := testutil.CreateTestIndustry(t, tc.DB, "Fintech")

	company := &models.Company{Name: "Acme", IndustryID: &fintech.ID, CreatedByID: tc.SuperUser.ID}
	require.NoError(t, tc.DB.Create(company).Error)
	contact := &models.Contact{Name: "Jo", IndustryID: &fmcg.ID, CreatedByID: tc.SuperUser.ID}
	require.NoError(t, tc.DB.Create(contact).Error)

	t.Run("admin assignment wins", func(t *testing.T) {
		admin := testutil.CreateTestUser(t, tc.DB, models.RoleIndustryAdmin, fmcg)
		got, err := svc.DeriveIndustry(ctx, admin, nil, &company.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, fmcg.ID, *got)
	})

	t.Run("contact industry before company industry", func(t *testing.T) {
		user := testutil.CreateTestUser(t, tc.DB, models.RoleStandard, nil)
		got, err := svc.DeriveIndustry(ctx, user, &contact.ID, &company.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, fmcg.ID, *got)
	})

	t.Run("company industry when no contact", func(t *testing.T) {
		user := testutil.CreateTestUser(t, tc.DB, models.RoleStandard, nil)
		got, err := svc.DeriveIndustry(ctx, user, nil, &company.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, fintech.ID, *got)
	})

	t.Run("nothing to derive from", func(t *testing.T) {
		user := testutil.CreateTestUser(t, tc.DB, models.RoleStandard, nil)
		got, err := svc.DeriveIndustry(ctx, user, nil, nil)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}
