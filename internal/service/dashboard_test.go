package service_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/jatinpathania/University-assignment-approval-system/internal/domain"
	"github.com/jatinpathania/University-assignment-approval-system/internal/errdefs"
	"github.com/jatinpathania/University-assignment-approval-system/internal/repository"
	"github.com/jatinpathania/University-assignment-approval-system/internal/service"
	"github.com/jatinpathania/University-assignment-approval-system/internal/service/mocks"
)

func setupDashboard(t *testing.T) (*service.DashboardService, *mocks.MockAssignmentRepository, *mocks.MockUserRepository) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	assignments := mocks.NewMockAssignmentRepository(ctrl)
	users := mocks.NewMockUserRepository(ctrl)
	svc := service.NewDashboardService(assignments, users)
	return svc, assignments, users
}

func TestDashboardStats(t *testing.T) {
	deptID := uuid.New()

	t.Run("StudentScopedToOwnRecords", func(t *testing.T) {
		svc, assignments, users := setupDashboard(t)
		student := testStudent(deptID)
		ctx := userCtx(student.ID, student.Role)

		users.EXPECT().GetByID(gomock.Any(), student.ID).Return(student, nil)
		assignments.EXPECT().CountByStatus(gomock.Any(), repository.StatusFilter{StudentID: student.ID}).
			Return(map[domain.Status]int{
				domain.StatusDraft:    1,
				domain.StatusRejected: 2,
			}, nil)

		stats, err := svc.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, stats.Total)
		assert.Equal(t, 1, stats.Draft)
		assert.Equal(t, 2, stats.Rejected)
		assert.Zero(t, stats.ApprovalRate)
	})

	t.Run("HODSeesDepartmentRates", func(t *testing.T) {
		svc, assignments, users := setupDashboard(t)
		hod := testHOD(deptID)
		ctx := userCtx(hod.ID, hod.Role)

		users.EXPECT().GetByID(gomock.Any(), hod.ID).Return(hod, nil)
		assignments.EXPECT().CountByStatus(gomock.Any(), repository.StatusFilter{DepartmentID: deptID}).
			Return(map[domain.Status]int{
				domain.StatusApproved:  3,
				domain.StatusRejected:  1,
				domain.StatusSubmitted: 1,
			}, nil)

		stats, err := svc.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 5, stats.Total)
		assert.InDelta(t, 60.0, stats.ApprovalRate, 0.01)
		assert.InDelta(t, 20.0, stats.RejectionRate, 0.01)
	})

	t.Run("AdminHasNoRollup", func(t *testing.T) {
		svc, _, users := setupDashboard(t)
		admin := &domain.User{ID: uuid.New(), Role: domain.RoleAdmin}
		ctx := userCtx(admin.ID, admin.Role)

		users.EXPECT().GetByID(gomock.Any(), admin.ID).Return(admin, nil)

		_, err := svc.Stats(ctx)
		assert.ErrorIs(t, err, errdefs.ErrPermissionDenied)
	})
}
