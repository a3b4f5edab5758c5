package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/jatinpathania/University-assignment-approval-system/internal/ctxdata"
	"github.com/jatinpathania/University-assignment-approval-system/internal/domain"
	"github.com/jatinpathania/University-assignment-approval-system/internal/errdefs"
	"github.com/jatinpathania/University-assignment-approval-system/internal/repository"
	"github.com/jatinpathania/University-assignment-approval-system/internal/service"
	"github.com/jatinpathania/University-assignment-approval-system/internal/service/mocks"
	"github.com/jatinpathania/University-assignment-approval-system/internal/storage"
	"github.com/jatinpathania/University-assignment-approval-system/pkg/logger"
)

type reviewMocks struct {
	assignments *mocks.MockAssignmentRepository
	users       *mocks.MockUserRepository
	documents   *mocks.MockDocumentStore
	verifier    *mocks.MockVerifier
	notifier    *mocks.MockNotifier
}

func setupReview(t *testing.T) (*service.ReviewService, *reviewMocks) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	m := &reviewMocks{
		assignments: mocks.NewMockAssignmentRepository(ctrl),
		users:       mocks.NewMockUserRepository(ctrl),
		documents:   mocks.NewMockDocumentStore(ctrl),
		verifier:    mocks.NewMockVerifier(ctrl),
		notifier:    mocks.NewMockNotifier(ctrl),
	}
	svc := service.NewReviewService(m.assignments, m.users, m.documents, m.verifier, m.notifier, logger.NewNop())
	return svc, m
}

func userCtx(userID uuid.UUID, role domain.Role) context.Context {
	ctx := context.Background()
	ctx = ctxdata.WithUserID(ctx, userID.String())
	ctx = ctxdata.WithUserRole(ctx, string(role))
	return ctx
}

func testStudent(deptID uuid.UUID) *domain.User {
	return &domain.User{
		ID:           uuid.New(),
		Name:         "Asha Student",
		Email:        "asha@uni.edu",
		Role:         domain.RoleStudent,
		DepartmentID: &deptID,
	}
}

func testProfessor(deptID uuid.UUID) *domain.User {
	return &domain.User{
		ID:           uuid.New(),
		Name:         "Prof. Verma",
		Email:        "verma@uni.edu",
		Role:         domain.RoleProfessor,
		DepartmentID: &deptID,
	}
}

func testHOD(deptID uuid.UUID) *domain.User {
	return &domain.User{
		ID:           uuid.New(),
		Name:         "Dr. Rao",
		Email:        "rao@uni.edu",
		Role:         domain.RoleHOD,
		DepartmentID: &deptID,
	}
}

func pendingAssignment(student *domain.User, reviewer *domain.User, status domain.Status) *domain.Assignment {
	a := &domain.Assignment{
		ID:           uuid.New(),
		Title:        "Distributed Consensus Survey",
		Category:     domain.CategoryReport,
		Status:       status,
		StudentID:    student.ID,
		DepartmentID: *student.DepartmentID,
	}
	if reviewer != nil {
		a.ReviewerID = &reviewer.ID
	}
	return a
}

// ── CreateDraft ─────────────────────────────────────────────────────

func TestCreateDraft(t *testing.T) {
	deptID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		svc, m := setupReview(t)
		student := testStudent(deptID)
		ctx := userCtx(student.ID, student.Role)

		m.users.EXPECT().GetByID(gomock.Any(), student.ID).Return(student, nil)
		m.documents.EXPECT().Upload(gomock.Any(), []byte("pdf-bytes"), "thesis.pdf").
			Return(&storage.UploadResult{URL: "http://files/abc.pdf", OriginalFileName: "thesis.pdf"}, nil)
		m.assignments.EXPECT().Create(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, a *domain.Assignment) error {
				a.ID = uuid.New()
				return nil
			})

		result, err := svc.CreateDraft(ctx, service.CreateDraftInput{
			Title:    "  My Thesis  ",
			Category: domain.CategoryThesis,
			File:     &service.FileUpload{Data: []byte("pdf-bytes"), Filename: "thesis.pdf"},
		})
		require.NoError(t, err)
		assert.Equal(t, domain.StatusDraft, result.Status)
		assert.Equal(t, "My Thesis", result.Title)
		assert.Equal(t, student.ID, result.StudentID)
		assert.Equal(t, deptID, result.DepartmentID)
		require.NotNil(t, result.FileURL)
		assert.Equal(t, "http://files/abc.pdf", *result.FileURL)
	})

	t.Run("ProfessorDenied", func(t *testing.T) {
		svc, m := setupReview(t)
		prof := testProfessor(deptID)
		ctx := userCtx(prof.ID, prof.Role)

		m.users.EXPECT().GetByID(gomock.Any(), prof.ID).Return(prof, nil)

		_, err := svc.CreateDraft(ctx, service.CreateDraftInput{
			Title:    "Not Mine to File",
			Category: domain.CategoryReport,
			File:     &service.FileUpload{Data: []byte("x"), Filename: "r.pdf"},
		})
		assert.ErrorIs(t, err, errdefs.ErrPermissionDenied)
	})

	t.Run("MissingTitleCategoryAndFile", func(t *testing.T) {
		svc, m := setupReview(t)
		student := testStudent(deptID)
		ctx := userCtx(student.ID, student.Role)

		m.users.EXPECT().GetByID(gomock.Any(), student.ID).Return(student, nil)

		_, err := svc.CreateDraft(ctx, service.CreateDraftInput{
			Title:    "   ",
			Category: domain.Category("Poem"),
		})
		require.Error(t, err)
		require.True(t, errdefs.IsValidation(err))
		ve := err.(*errdefs.ValidationError)
		assert.Contains(t, ve.Fields, "title")
		assert.Contains(t, ve.Fields, "category")
		assert.Contains(t, ve.Fields, "file")
	})

	t.Run("NoDepartment", func(t *testing.T) {
		svc, m := setupReview(t)
		student := testStudent(deptID)
		student.DepartmentID = nil
		ctx := userCtx(student.ID, student.Role)

		m.users.EXPECT().GetByID(gomock.Any(), student.ID).Return(student, nil)

		_, err := svc.CreateDraft(ctx, service.CreateDraftInput{
			Title:    "Unhomed",
			Category: domain.CategoryAssignment,
			File:     &service.FileUpload{Data: []byte("x"), Filename: "a.pdf"},
		})
		require.True(t, errdefs.IsValidation(err))
	})
}

func TestCreateDrafts(t *testing.T) {
	deptID := uuid.New()

	t.Run("MultipleFilesGetPartSuffixes", func(t *testing.T) {
		svc, m := setupReview(t)
		student := testStudent(deptID)
		ctx := userCtx(student.ID, student.Role)

		m.users.EXPECT().GetByID(gomock.Any(), student.ID).Return(student, nil)
		m.documents.EXPECT().Upload(gomock.Any(), []byte("one"), "lab1.pdf").
			Return(&storage.UploadResult{URL: "http://files/one.pdf", OriginalFileName: "lab1.pdf"}, nil)
		m.documents.EXPECT().Upload(gomock.Any(), []byte("two"), "lab2.pdf").
			Return(&storage.UploadResult{URL: "http://files/two.pdf", OriginalFileName: "lab2.pdf"}, nil)
		m.assignments.EXPECT().Create(gomock.Any(), gomock.Any()).Times(2).
			DoAndReturn(func(_ context.Context, a *domain.Assignment) error {
				a.ID = uuid.New()
				return nil
			})

		result, err := svc.CreateDrafts(ctx, service.CreateDraftsInput{
			Title:    "  Physics Labs  ",
			Category: domain.CategoryAssignment,
			Files: []service.FileUpload{
				{Data: []byte("one"), Filename: "lab1.pdf"},
				{Data: []byte("two"), Filename: "lab2.pdf"},
			},
		})
		require.NoError(t, err)
		require.Len(t, result, 2)
		assert.Equal(t, "Physics Labs (Part 1)", result[0].Title)
		assert.Equal(t, "Physics Labs (Part 2)", result[1].Title)
		assert.Equal(t, domain.StatusDraft, result[0].Status)
		assert.Equal(t, domain.StatusDraft, result[1].Status)
	})

	t.Run("SingleFileKeepsTitle", func(t *testing.T) {
		svc, m := setupReview(t)
		student := testStudent(deptID)
		ctx := userCtx(student.ID, student.Role)

		m.users.EXPECT().GetByID(gomock.Any(), student.ID).Return(student, nil)
		m.documents.EXPECT().Upload(gomock.Any(), []byte("one"), "lab1.pdf").
			Return(&storage.UploadResult{URL: "http://files/one.pdf", OriginalFileName: "lab1.pdf"}, nil)
		m.assignments.EXPECT().Create(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, a *domain.Assignment) error {
				a.ID = uuid.New()
				return nil
			})

		result, err := svc.CreateDrafts(ctx, service.CreateDraftsInput{
			Title:    "Physics Labs",
			Category: domain.CategoryAssignment,
			Files:    []service.FileUpload{{Data: []byte("one"), Filename: "lab1.pdf"}},
		})
		require.NoError(t, err)
		require.Len(t, result, 1)
		assert.Equal(t, "Physics Labs", result[0].Title)
	})

	t.Run("NoFiles", func(t *testing.T) {
		svc, m := setupReview(t)
		student := testStudent(deptID)
		ctx := userCtx(student.ID, student.Role)

		m.users.EXPECT().GetByID(gomock.Any(), student.ID).Return(student, nil)

		_, err := svc.CreateDrafts(ctx, service.CreateDraftsInput{
			Title:    "Physics Labs",
			Category: domain.CategoryAssignment,
		})
		require.True(t, errdefs.IsValidation(err))
		ve := err.(*errdefs.ValidationError)
		assert.Contains(t, ve.Fields, "files")
	})

	t.Run("TooManyFiles", func(t *testing.T) {
		svc, m := setupReview(t)
		student := testStudent(deptID)
		ctx := userCtx(student.ID, student.Role)

		m.users.EXPECT().GetByID(gomock.Any(), student.ID).Return(student, nil)

		files := make([]service.FileUpload, 6)
		for i := range files {
			files[i] = service.FileUpload{Data: []byte("x"), Filename: "f.pdf"}
		}
		_, err := svc.CreateDrafts(ctx, service.CreateDraftsInput{
			Title:    "Physics Labs",
			Category: domain.CategoryAssignment,
			Files:    files,
		})
		require.True(t, errdefs.IsValidation(err))
	})

	t.Run("ProfessorDenied", func(t *testing.T) {
		svc, m := setupReview(t)
		prof := testProfessor(deptID)
		ctx := userCtx(prof.ID, prof.Role)

		m.users.EXPECT().GetByID(gomock.Any(), prof.ID).Return(prof, nil)

		_, err := svc.CreateDrafts(ctx, service.CreateDraftsInput{
			Title:    "Not Mine",
			Category: domain.CategoryAssignment,
			Files:    []service.FileUpload{{Data: []byte("x"), Filename: "f.pdf"}},
		})
		assert.ErrorIs(t, err, errdefs.ErrPermissionDenied)
	})
}

// ── Submit ──────────────────────────────────────────────────────────

func TestSubmit(t *testing.T) {
	deptID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		svc, m := setupReview(t)
		student := testStudent(deptID)
		prof := testProfessor(deptID)
		draft := pendingAssignment(student, nil, domain.StatusDraft)
		ctx := userCtx(student.ID, student.Role)

		m.users.EXPECT().GetByID(gomock.Any(), student.ID).Return(student, nil)
		m.assignments.EXPECT().GetByID(gomock.Any(), draft.ID).Return(draft, nil)
		m.users.EXPECT().GetByID(gomock.Any(), prof.ID).Return(prof, nil)
		m.assignments.EXPECT().ApplyTransition(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, upd repository.TransitionUpdate) (*domain.Assignment, error) {
				assert.Equal(t, []domain.Status{domain.StatusDraft}, upd.FromStatuses)
				assert.Equal(t, domain.StatusSubmitted, upd.Status)
				require.NotNil(t, upd.ReviewerID)
				assert.Equal(t, prof.ID, *upd.ReviewerID)
				require.NotNil(t, upd.SubmissionDate)
				assert.Equal(t, domain.ActionSubmitted, upd.Entry.Action)
				assert.Equal(t, student.Name, upd.Entry.By)
				out := *draft
				out.Status = upd.Status
				out.ReviewerID = upd.ReviewerID
				return &out, nil
			})
		m.notifier.EXPECT().SendAsync(gomock.Any(), gomock.Any())

		result, err := svc.Submit(ctx, draft.ID, prof.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusSubmitted, result.Status)
	})

	t.Run("NotOwner", func(t *testing.T) {
		svc, m := setupReview(t)
		student := testStudent(deptID)
		other := testStudent(deptID)
		draft := pendingAssignment(student, nil, domain.StatusDraft)
		ctx := userCtx(other.ID, other.Role)

		m.users.EXPECT().GetByID(gomock.Any(), other.ID).Return(other, nil)
		m.assignments.EXPECT().GetByID(gomock.Any(), draft.ID).Return(draft, nil)

		_, err := svc.Submit(ctx, draft.ID, uuid.New())
		assert.ErrorIs(t, err, errdefs.ErrPermissionDenied)
	})

	t.Run("AlreadySubmitted", func(t *testing.T) {
		svc, m := setupReview(t)
		student := testStudent(deptID)
		prof := testProfessor(deptID)
		submitted := pendingAssignment(student, prof, domain.StatusSubmitted)
		ctx := userCtx(student.ID, student.Role)

		m.users.EXPECT().GetByID(gomock.Any(), student.ID).Return(student, nil)
		m.assignments.EXPECT().GetByID(gomock.Any(), submitted.ID).Return(submitted, nil)

		_, err := svc.Submit(ctx, submitted.ID, prof.ID)
		require.True(t, errdefs.IsValidation(err))
	})

	t.Run("ReviewerIsStudent", func(t *testing.T) {
		svc, m := setupReview(t)
		student := testStudent(deptID)
		peer := testStudent(deptID)
		draft := pendingAssignment(student, nil, domain.StatusDraft)
		ctx := userCtx(student.ID, student.Role)

		m.users.EXPECT().GetByID(gomock.Any(), student.ID).Return(student, nil)
		m.assignments.EXPECT().GetByID(gomock.Any(), draft.ID).Return(draft, nil)
		m.users.EXPECT().GetByID(gomock.Any(), peer.ID).Return(peer, nil)

		_, err := svc.Submit(ctx, draft.ID, peer.ID)
		require.True(t, errdefs.IsValidation(err))
	})

	t.Run("ReviewerWrongDepartment", func(t *testing.T) {
		svc, m := setupReview(t)
		student := testStudent(deptID)
		outsider := testProfessor(uuid.New())
		draft := pendingAssignment(student, nil, domain.StatusDraft)
		ctx := userCtx(student.ID, student.Role)

		m.users.EXPECT().GetByID(gomock.Any(), student.ID).Return(student, nil)
		m.assignments.EXPECT().GetByID(gomock.Any(), draft.ID).Return(draft, nil)
		m.users.EXPECT().GetByID(gomock.Any(), outsider.ID).Return(outsider, nil)

		_, err := svc.Submit(ctx, draft.ID, outsider.ID)
		require.True(t, errdefs.IsValidation(err))
	})
}

// ── Forward ─────────────────────────────────────────────────────────

func TestForward(t *testing.T) {
	deptID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		svc, m := setupReview(t)
		student := testStudent(deptID)
		current := testProfessor(deptID)
		next := testHOD(deptID)
		submitted := pendingAssignment(student, current, domain.StatusSubmitted)
		ctx := userCtx(current.ID, current.Role)

		m.users.EXPECT().GetByID(gomock.Any(), current.ID).Return(current, nil)
		m.assignments.EXPECT().GetByID(gomock.Any(), submitted.ID).Return(submitted, nil)
		m.users.EXPECT().GetByID(gomock.Any(), next.ID).Return(next, nil)
		m.assignments.EXPECT().ApplyTransition(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, upd repository.TransitionUpdate) (*domain.Assignment, error) {
				assert.Equal(t, domain.StatusForwarded, upd.Status)
				require.NotNil(t, upd.ReviewerID)
				assert.Equal(t, next.ID, *upd.ReviewerID)
				assert.Equal(t, domain.ActionForwarded, upd.Entry.Action)
				assert.Equal(t, "needs a second opinion", upd.Entry.Remark)
				out := *submitted
				out.Status = upd.Status
				out.ReviewerID = upd.ReviewerID
				return &out, nil
			})
		m.notifier.EXPECT().SendAsync(gomock.Any(), gomock.Any())

		result, err := svc.Forward(ctx, submitted.ID, next.ID, "needs a second opinion")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusForwarded, result.Status)
	})

	t.Run("NotCurrentReviewer", func(t *testing.T) {
		svc, m := setupReview(t)
		student := testStudent(deptID)
		current := testProfessor(deptID)
		other := testProfessor(deptID)
		submitted := pendingAssignment(student, current, domain.StatusSubmitted)
		ctx := userCtx(other.ID, other.Role)

		m.users.EXPECT().GetByID(gomock.Any(), other.ID).Return(other, nil)
		m.assignments.EXPECT().GetByID(gomock.Any(), submitted.ID).Return(submitted, nil)

		_, err := svc.Forward(ctx, submitted.ID, uuid.New(), "")
		assert.ErrorIs(t, err, errdefs.ErrPermissionDenied)
	})

	t.Run("ForwardToSelf", func(t *testing.T) {
		svc, m := setupReview(t)
		student := testStudent(deptID)
		current := testProfessor(deptID)
		submitted := pendingAssignment(student, current, domain.StatusSubmitted)
		ctx := userCtx(current.ID, current.Role)

		m.users.EXPECT().GetByID(gomock.Any(), current.ID).Return(current, nil)
		m.assignments.EXPECT().GetByID(gomock.Any(), submitted.ID).Return(submitted, nil)

		_, err := svc.Forward(ctx, submitted.ID, current.ID, "")
		require.True(t, errdefs.IsValidation(err))
	})

	t.Run("CycleBackToEarlierReviewerAllowed", func(t *testing.T) {
		svc, m := setupReview(t)
		student := testStudent(deptID)
		first := testProfessor(deptID)
		second := testProfessor(deptID)
		forwarded := pendingAssignment(student, second, domain.StatusForwarded)
		ctx := userCtx(second.ID, second.Role)

		m.users.EXPECT().GetByID(gomock.Any(), second.ID).Return(second, nil)
		m.assignments.EXPECT().GetByID(gomock.Any(), forwarded.ID).Return(forwarded, nil)
		m.users.EXPECT().GetByID(gomock.Any(), first.ID).Return(first, nil)
		m.assignments.EXPECT().ApplyTransition(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, upd repository.TransitionUpdate) (*domain.Assignment, error) {
				out := *forwarded
				out.ReviewerID = upd.ReviewerID
				return &out, nil
			})
		m.notifier.EXPECT().SendAsync(gomock.Any(), gomock.Any())

		_, err := svc.Forward(ctx, forwarded.ID, first.ID, "back to you")
		require.NoError(t, err)
	})

	t.Run("RejectedCannotBeForwarded", func(t *testing.T) {
		svc, m := setupReview(t)
		student := testStudent(deptID)
		current := testProfessor(deptID)
		rejected := pendingAssignment(student, current, domain.StatusRejected)
		ctx := userCtx(current.ID, current.Role)

		m.users.EXPECT().GetByID(gomock.Any(), current.ID).Return(current, nil)
		m.assignments.EXPECT().GetByID(gomock.Any(), rejected.ID).Return(rejected, nil)

		_, err := svc.Forward(ctx, rejected.ID, uuid.New(), "")
		require.True(t, errdefs.IsValidation(err))
	})
}

// ── Reject ──────────────────────────────────────────────────────────

func TestReject(t *testing.T) {
	deptID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		svc, m := setupReview(t)
		student := testStudent(deptID)
		prof := testProfessor(deptID)
		submitted := pendingAssignment(student, prof, domain.StatusSubmitted)
		ctx := userCtx(prof.ID, prof.Role)

		m.users.EXPECT().GetByID(gomock.Any(), prof.ID).Return(prof, nil)
		m.assignments.EXPECT().GetByID(gomock.Any(), submitted.ID).Return(submitted, nil)
		m.assignments.EXPECT().ApplyTransition(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, upd repository.TransitionUpdate) (*domain.Assignment, error) {
				assert.Equal(t, domain.StatusRejected, upd.Status)
				assert.Equal(t, domain.ActionRejected, upd.Entry.Action)
				assert.Equal(t, prof.Name, upd.Entry.By)
				assert.Equal(t, "missing citations throughout", upd.Entry.Remark)
				out := *submitted
				out.Status = upd.Status
				return &out, nil
			})
		m.users.EXPECT().GetByID(gomock.Any(), student.ID).Return(student, nil)
		m.notifier.EXPECT().SendAsync(gomock.Any(), gomock.Any())

		result, err := svc.Reject(ctx, submitted.ID, "missing citations throughout")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusRejected, result.Status)
	})

	t.Run("RemarkNineCharsFails", func(t *testing.T) {
		svc, m := setupReview(t)
		student := testStudent(deptID)
		prof := testProfessor(deptID)
		submitted := pendingAssignment(student, prof, domain.StatusSubmitted)
		ctx := userCtx(prof.ID, prof.Role)

		m.users.EXPECT().GetByID(gomock.Any(), prof.ID).Return(prof, nil)
		m.assignments.EXPECT().GetByID(gomock.Any(), submitted.ID).Return(submitted, nil)

		_, err := svc.Reject(ctx, submitted.ID, "  too vague  ")
		require.True(t, errdefs.IsValidation(err))
	})

	t.Run("RemarkTenCharsSucceeds", func(t *testing.T) {
		svc, m := setupReview(t)
		student := testStudent(deptID)
		prof := testProfessor(deptID)
		submitted := pendingAssignment(student, prof, domain.StatusSubmitted)
		ctx := userCtx(prof.ID, prof.Role)

		m.users.EXPECT().GetByID(gomock.Any(), prof.ID).Return(prof, nil)
		m.assignments.EXPECT().GetByID(gomock.Any(), submitted.ID).Return(submitted, nil)
		m.assignments.EXPECT().ApplyTransition(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, upd repository.TransitionUpdate) (*domain.Assignment, error) {
				out := *submitted
				out.Status = upd.Status
				return &out, nil
			})
		m.users.EXPECT().GetByID(gomock.Any(), student.ID).Return(student, nil)
		m.notifier.EXPECT().SendAsync(gomock.Any(), gomock.Any())

		_, err := svc.Reject(ctx, submitted.ID, "ten chars!")
		require.NoError(t, err)
	})

	t.Run("NineRuneCyrillicRemarkFails", func(t *testing.T) {
		svc, m := setupReview(t)
		student := testStudent(deptID)
		prof := testProfessor(deptID)
		submitted := pendingAssignment(student, prof, domain.StatusSubmitted)
		ctx := userCtx(prof.ID, prof.Role)

		m.users.EXPECT().GetByID(gomock.Any(), prof.ID).Return(prof, nil)
		m.assignments.EXPECT().GetByID(gomock.Any(), submitted.ID).Return(submitted, nil)

		// 9 characters but 17 bytes; the minimum counts characters.
		_, err := svc.Reject(ctx, submitted.ID, "плохо оче")
		require.True(t, errdefs.IsValidation(err))
	})

	t.Run("TenRuneCyrillicRemarkSucceeds", func(t *testing.T) {
		svc, m := setupReview(t)
		student := testStudent(deptID)
		prof := testProfessor(deptID)
		submitted := pendingAssignment(student, prof, domain.StatusSubmitted)
		ctx := userCtx(prof.ID, prof.Role)

		m.users.EXPECT().GetByID(gomock.Any(), prof.ID).Return(prof, nil)
		m.assignments.EXPECT().GetByID(gomock.Any(), submitted.ID).Return(submitted, nil)
		m.assignments.EXPECT().ApplyTransition(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, upd repository.TransitionUpdate) (*domain.Assignment, error) {
				out := *submitted
				out.Status = upd.Status
				return &out, nil
			})
		m.users.EXPECT().GetByID(gomock.Any(), student.ID).Return(student, nil)
		m.notifier.EXPECT().SendAsync(gomock.Any(), gomock.Any())

		_, err := svc.Reject(ctx, submitted.ID, "плохо очен")
		require.NoError(t, err)
	})

	t.Run("HODOverrideTagsHistory", func(t *testing.T) {
		svc, m := setupReview(t)
		student := testStudent(deptID)
		prof := testProfessor(deptID)
		hod := testHOD(deptID)
		submitted := pendingAssignment(student, prof, domain.StatusSubmitted)
		ctx := userCtx(hod.ID, hod.Role)

		m.users.EXPECT().GetByID(gomock.Any(), hod.ID).Return(hod, nil)
		m.assignments.EXPECT().GetByID(gomock.Any(), submitted.ID).Return(submitted, nil)
		m.assignments.EXPECT().ApplyTransition(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, upd repository.TransitionUpdate) (*domain.Assignment, error) {
				assert.Equal(t, hod.Name+" (HOD Override)", upd.Entry.By)
				out := *submitted
				out.Status = upd.Status
				return &out, nil
			})
		m.users.EXPECT().GetByID(gomock.Any(), student.ID).Return(student, nil)
		m.notifier.EXPECT().SendAsync(gomock.Any(), gomock.Any())

		_, err := svc.Reject(ctx, submitted.ID, "does not meet the department bar")
		require.NoError(t, err)
	})

	t.Run("HODFromOtherDepartmentDenied", func(t *testing.T) {
		svc, m := setupReview(t)
		student := testStudent(deptID)
		prof := testProfessor(deptID)
		foreignHOD := testHOD(uuid.New())
		submitted := pendingAssignment(student, prof, domain.StatusSubmitted)
		ctx := userCtx(foreignHOD.ID, foreignHOD.Role)

		m.users.EXPECT().GetByID(gomock.Any(), foreignHOD.ID).Return(foreignHOD, nil)
		m.assignments.EXPECT().GetByID(gomock.Any(), submitted.ID).Return(submitted, nil)

		_, err := svc.Reject(ctx, submitted.ID, "not my call but trying anyway")
		assert.ErrorIs(t, err, errdefs.ErrPermissionDenied)
	})
}

// ── RequestApproval / ConfirmApproval ───────────────────────────────

func TestRequestApproval(t *testing.T) {
	deptID := uuid.New()

	t.Run("StagesPayloadBehindGate", func(t *testing.T) {
		svc, m := setupReview(t)
		student := testStudent(deptID)
		prof := testProfessor(deptID)
		submitted := pendingAssignment(student, prof, domain.StatusSubmitted)
		ctx := userCtx(prof.ID, prof.Role)

		m.users.EXPECT().GetByID(gomock.Any(), prof.ID).Return(prof, nil)
		m.assignments.EXPECT().GetByID(gomock.Any(), submitted.ID).Return(submitted, nil)
		m.verifier.EXPECT().Issue(gomock.Any(), prof, domain.PurposeApproval, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ *domain.User, _ domain.ChallengePurpose, payload interface{}) error {
				staged := payload.(domain.ApprovalPayload)
				assert.Equal(t, submitted.ID, staged.AssignmentID)
				assert.Equal(t, "excellent work", staged.Remark)
				assert.Nil(t, staged.SignatureFileURL)
				return nil
			})

		err := svc.RequestApproval(ctx, submitted.ID, "excellent work", nil)
		require.NoError(t, err)
	})

	t.Run("SignatureUploadedBeforeStaging", func(t *testing.T) {
		svc, m := setupReview(t)
		student := testStudent(deptID)
		prof := testProfessor(deptID)
		submitted := pendingAssignment(student, prof, domain.StatusForwarded)
		ctx := userCtx(prof.ID, prof.Role)

		m.users.EXPECT().GetByID(gomock.Any(), prof.ID).Return(prof, nil)
		m.assignments.EXPECT().GetByID(gomock.Any(), submitted.ID).Return(submitted, nil)
		m.documents.EXPECT().Upload(gomock.Any(), []byte("sig"), "signature.png").
			Return(&storage.UploadResult{URL: "http://files/sig.png", OriginalFileName: "signature.png"}, nil)
		m.verifier.EXPECT().Issue(gomock.Any(), prof, domain.PurposeApproval, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ *domain.User, _ domain.ChallengePurpose, payload interface{}) error {
				staged := payload.(domain.ApprovalPayload)
				require.NotNil(t, staged.SignatureFileURL)
				assert.Equal(t, "http://files/sig.png", *staged.SignatureFileURL)
				return nil
			})

		err := svc.RequestApproval(ctx, submitted.ID, "", &service.FileUpload{Data: []byte("sig"), Filename: "signature.png"})
		require.NoError(t, err)
	})

	t.Run("DraftCannotBeApproved", func(t *testing.T) {
		svc, m := setupReview(t)
		student := testStudent(deptID)
		hod := testHOD(deptID)
		draft := pendingAssignment(student, nil, domain.StatusDraft)
		ctx := userCtx(hod.ID, hod.Role)

		m.users.EXPECT().GetByID(gomock.Any(), hod.ID).Return(hod, nil)
		m.assignments.EXPECT().GetByID(gomock.Any(), draft.ID).Return(draft, nil)

		err := svc.RequestApproval(ctx, draft.ID, "", nil)
		require.True(t, errdefs.IsValidation(err))
	})
}

func TestConfirmApproval(t *testing.T) {
	deptID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		svc, m := setupReview(t)
		student := testStudent(deptID)
		prof := testProfessor(deptID)
		submitted := pendingAssignment(student, prof, domain.StatusSubmitted)
		ctx := userCtx(prof.ID, prof.Role)

		m.users.EXPECT().GetByID(gomock.Any(), prof.ID).Return(prof, nil)
		m.assignments.EXPECT().GetByID(gomock.Any(), submitted.ID).Return(submitted, nil)
		m.verifier.EXPECT().Confirm(gomock.Any(), prof.ID, domain.PurposeApproval, "123456", gomock.Any()).
			DoAndReturn(func(_ context.Context, _ uuid.UUID, _ domain.ChallengePurpose, _ string, payload interface{}) error {
				*(payload.(*domain.ApprovalPayload)) = domain.ApprovalPayload{
					AssignmentID: submitted.ID,
					Remark:       "well argued",
				}
				return nil
			})
		m.assignments.EXPECT().ApplyTransition(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, upd repository.TransitionUpdate) (*domain.Assignment, error) {
				assert.Equal(t, domain.StatusApproved, upd.Status)
				assert.Equal(t, domain.ActionApproved, upd.Entry.Action)
				assert.Equal(t, "well argued", upd.Entry.Remark)
				out := *submitted
				out.Status = upd.Status
				return &out, nil
			})
		m.verifier.EXPECT().Consume(gomock.Any(), prof.ID, domain.PurposeApproval).Return(nil)
		m.users.EXPECT().GetByID(gomock.Any(), student.ID).Return(student, nil)
		m.notifier.EXPECT().SendAsync(gomock.Any(), gomock.Any())

		result, err := svc.ConfirmApproval(ctx, submitted.ID, "123456")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusApproved, result.Status)
	})

	t.Run("ConsumeFailureStillReturnsApproved", func(t *testing.T) {
		svc, m := setupReview(t)
		student := testStudent(deptID)
		prof := testProfessor(deptID)
		submitted := pendingAssignment(student, prof, domain.StatusSubmitted)
		ctx := userCtx(prof.ID, prof.Role)

		m.users.EXPECT().GetByID(gomock.Any(), prof.ID).Return(prof, nil)
		m.assignments.EXPECT().GetByID(gomock.Any(), submitted.ID).Return(submitted, nil)
		m.verifier.EXPECT().Confirm(gomock.Any(), prof.ID, domain.PurposeApproval, "123456", gomock.Any()).
			DoAndReturn(func(_ context.Context, _ uuid.UUID, _ domain.ChallengePurpose, _ string, payload interface{}) error {
				*(payload.(*domain.ApprovalPayload)) = domain.ApprovalPayload{AssignmentID: submitted.ID}
				return nil
			})
		m.assignments.EXPECT().ApplyTransition(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, upd repository.TransitionUpdate) (*domain.Assignment, error) {
				out := *submitted
				out.Status = upd.Status
				return &out, nil
			})
		m.verifier.EXPECT().Consume(gomock.Any(), prof.ID, domain.PurposeApproval).Return(assert.AnError)
		m.users.EXPECT().GetByID(gomock.Any(), student.ID).Return(student, nil)
		m.notifier.EXPECT().SendAsync(gomock.Any(), gomock.Any())

		result, err := svc.ConfirmApproval(ctx, submitted.ID, "123456")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusApproved, result.Status)
	})

	t.Run("WrongCodeLeavesStatusUnchanged", func(t *testing.T) {
		svc, m := setupReview(t)
		student := testStudent(deptID)
		prof := testProfessor(deptID)
		submitted := pendingAssignment(student, prof, domain.StatusSubmitted)
		ctx := userCtx(prof.ID, prof.Role)

		m.users.EXPECT().GetByID(gomock.Any(), prof.ID).Return(prof, nil)
		m.assignments.EXPECT().GetByID(gomock.Any(), submitted.ID).Return(submitted, nil)
		m.verifier.EXPECT().Confirm(gomock.Any(), prof.ID, domain.PurposeApproval, "000000", gomock.Any()).
			Return(errdefs.ErrInvalidOTP)

		_, err := svc.ConfirmApproval(ctx, submitted.ID, "000000")
		assert.ErrorIs(t, err, errdefs.ErrInvalidOTP)
	})

	t.Run("ExpiredCodeLeavesStatusUnchanged", func(t *testing.T) {
		svc, m := setupReview(t)
		student := testStudent(deptID)
		prof := testProfessor(deptID)
		submitted := pendingAssignment(student, prof, domain.StatusSubmitted)
		ctx := userCtx(prof.ID, prof.Role)

		m.users.EXPECT().GetByID(gomock.Any(), prof.ID).Return(prof, nil)
		m.assignments.EXPECT().GetByID(gomock.Any(), submitted.ID).Return(submitted, nil)
		m.verifier.EXPECT().Confirm(gomock.Any(), prof.ID, domain.PurposeApproval, "123456", gomock.Any()).
			Return(errdefs.ErrOTPExpired)

		_, err := svc.ConfirmApproval(ctx, submitted.ID, "123456")
		assert.ErrorIs(t, err, errdefs.ErrOTPExpired)
	})

	t.Run("ChallengeForDifferentAssignment", func(t *testing.T) {
		svc, m := setupReview(t)
		student := testStudent(deptID)
		prof := testProfessor(deptID)
		submitted := pendingAssignment(student, prof, domain.StatusSubmitted)
		ctx := userCtx(prof.ID, prof.Role)

		m.users.EXPECT().GetByID(gomock.Any(), prof.ID).Return(prof, nil)
		m.assignments.EXPECT().GetByID(gomock.Any(), submitted.ID).Return(submitted, nil)
		m.verifier.EXPECT().Confirm(gomock.Any(), prof.ID, domain.PurposeApproval, "123456", gomock.Any()).
			DoAndReturn(func(_ context.Context, _ uuid.UUID, _ domain.ChallengePurpose, _ string, payload interface{}) error {
				*(payload.(*domain.ApprovalPayload)) = domain.ApprovalPayload{AssignmentID: uuid.New()}
				return nil
			})

		_, err := svc.ConfirmApproval(ctx, submitted.ID, "123456")
		require.True(t, errdefs.IsValidation(err))
	})
}

// ── Resubmit ────────────────────────────────────────────────────────

func TestResubmit(t *testing.T) {
	deptID := uuid.New()

	t.Run("RejectedBackToSubmitted", func(t *testing.T) {
		svc, m := setupReview(t)
		student := testStudent(deptID)
		prof := testProfessor(deptID)
		rejected := pendingAssignment(student, prof, domain.StatusRejected)
		ctx := userCtx(student.ID, student.Role)

		m.users.EXPECT().GetByID(gomock.Any(), student.ID).Return(student, nil)
		m.assignments.EXPECT().GetByID(gomock.Any(), rejected.ID).Return(rejected, nil)
		m.users.EXPECT().GetByID(gomock.Any(), prof.ID).Return(prof, nil)
		m.documents.EXPECT().Upload(gomock.Any(), []byte("v2"), "thesis-v2.pdf").
			Return(&storage.UploadResult{URL: "http://files/v2.pdf", OriginalFileName: "thesis-v2.pdf"}, nil)
		m.assignments.EXPECT().ApplyTransition(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, upd repository.TransitionUpdate) (*domain.Assignment, error) {
				assert.Equal(t, []domain.Status{domain.StatusRejected}, upd.FromStatuses)
				assert.Equal(t, domain.StatusSubmitted, upd.Status)
				assert.Equal(t, domain.ActionResubmitted, upd.Entry.Action)
				require.NotNil(t, upd.FileURL)
				assert.Equal(t, "http://files/v2.pdf", *upd.FileURL)
				require.NotNil(t, upd.SubmissionDate)
				out := *rejected
				out.Status = upd.Status
				return &out, nil
			})
		m.notifier.EXPECT().SendAsync(gomock.Any(), gomock.Any())

		result, err := svc.Resubmit(ctx, rejected.ID, service.ResubmitInput{
			File: &service.FileUpload{Data: []byte("v2"), Filename: "thesis-v2.pdf"},
		})
		require.NoError(t, err)
		assert.Equal(t, domain.StatusSubmitted, result.Status)
	})

	t.Run("DraftCannotBeResubmitted", func(t *testing.T) {
		svc, m := setupReview(t)
		student := testStudent(deptID)
		draft := pendingAssignment(student, nil, domain.StatusDraft)
		ctx := userCtx(student.ID, student.Role)

		m.users.EXPECT().GetByID(gomock.Any(), student.ID).Return(student, nil)
		m.assignments.EXPECT().GetByID(gomock.Any(), draft.ID).Return(draft, nil)

		_, err := svc.Resubmit(ctx, draft.ID, service.ResubmitInput{})
		require.True(t, errdefs.IsValidation(err))
	})

	t.Run("SwapReviewerOnResubmit", func(t *testing.T) {
		svc, m := setupReview(t)
		student := testStudent(deptID)
		oldReviewer := testProfessor(deptID)
		newReviewer := testProfessor(deptID)
		rejected := pendingAssignment(student, oldReviewer, domain.StatusRejected)
		ctx := userCtx(student.ID, student.Role)

		m.users.EXPECT().GetByID(gomock.Any(), student.ID).Return(student, nil)
		m.assignments.EXPECT().GetByID(gomock.Any(), rejected.ID).Return(rejected, nil)
		m.users.EXPECT().GetByID(gomock.Any(), newReviewer.ID).Return(newReviewer, nil)
		m.assignments.EXPECT().ApplyTransition(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, upd repository.TransitionUpdate) (*domain.Assignment, error) {
				require.NotNil(t, upd.ReviewerID)
				assert.Equal(t, newReviewer.ID, *upd.ReviewerID)
				out := *rejected
				out.Status = upd.Status
				out.ReviewerID = upd.ReviewerID
				return &out, nil
			})
		m.notifier.EXPECT().SendAsync(gomock.Any(), gomock.Any())

		_, err := svc.Resubmit(ctx, rejected.ID, service.ResubmitInput{ReviewerID: &newReviewer.ID})
		require.NoError(t, err)
	})

	t.Run("NotOwner", func(t *testing.T) {
		svc, m := setupReview(t)
		student := testStudent(deptID)
		other := testStudent(deptID)
		rejected := pendingAssignment(student, nil, domain.StatusRejected)
		ctx := userCtx(other.ID, other.Role)

		m.users.EXPECT().GetByID(gomock.Any(), other.ID).Return(other, nil)
		m.assignments.EXPECT().GetByID(gomock.Any(), rejected.ID).Return(rejected, nil)

		_, err := svc.Resubmit(ctx, rejected.ID, service.ResubmitInput{})
		assert.ErrorIs(t, err, errdefs.ErrPermissionDenied)
	})
}

// ── Get visibility ──────────────────────────────────────────────────

func TestGetVisibility(t *testing.T) {
	deptID := uuid.New()

	t.Run("OwnerSeesDraft", func(t *testing.T) {
		svc, m := setupReview(t)
		student := testStudent(deptID)
		draft := pendingAssignment(student, nil, domain.StatusDraft)
		ctx := userCtx(student.ID, student.Role)

		m.users.EXPECT().GetByID(gomock.Any(), student.ID).Return(student, nil)
		m.assignments.EXPECT().GetByID(gomock.Any(), draft.ID).Return(draft, nil)

		result, err := svc.Get(ctx, draft.ID)
		require.NoError(t, err)
		assert.Equal(t, draft.ID, result.ID)
	})

	t.Run("DraftHiddenFromEveryoneElse", func(t *testing.T) {
		svc, m := setupReview(t)
		student := testStudent(deptID)
		hod := testHOD(deptID)
		draft := pendingAssignment(student, nil, domain.StatusDraft)
		ctx := userCtx(hod.ID, hod.Role)

		m.users.EXPECT().GetByID(gomock.Any(), hod.ID).Return(hod, nil)
		m.assignments.EXPECT().GetByID(gomock.Any(), draft.ID).Return(draft, nil)

		_, err := svc.Get(ctx, draft.ID)
		assert.ErrorIs(t, err, errdefs.ErrPermissionDenied)
	})

	t.Run("AssignedReviewerSeesSubmitted", func(t *testing.T) {
		svc, m := setupReview(t)
		student := testStudent(deptID)
		prof := testProfessor(deptID)
		submitted := pendingAssignment(student, prof, domain.StatusSubmitted)
		ctx := userCtx(prof.ID, prof.Role)

		m.users.EXPECT().GetByID(gomock.Any(), prof.ID).Return(prof, nil)
		m.assignments.EXPECT().GetByID(gomock.Any(), submitted.ID).Return(submitted, nil)

		_, err := svc.Get(ctx, submitted.ID)
		require.NoError(t, err)
	})

	t.Run("UnrelatedProfessorDenied", func(t *testing.T) {
		svc, m := setupReview(t)
		student := testStudent(deptID)
		prof := testProfessor(deptID)
		bystander := testProfessor(deptID)
		submitted := pendingAssignment(student, prof, domain.StatusSubmitted)
		ctx := userCtx(bystander.ID, bystander.Role)

		m.users.EXPECT().GetByID(gomock.Any(), bystander.ID).Return(bystander, nil)
		m.assignments.EXPECT().GetByID(gomock.Any(), submitted.ID).Return(submitted, nil)

		_, err := svc.Get(ctx, submitted.ID)
		assert.ErrorIs(t, err, errdefs.ErrPermissionDenied)
	})

	t.Run("AdminSeesNonDraft", func(t *testing.T) {
		svc, m := setupReview(t)
		student := testStudent(deptID)
		prof := testProfessor(deptID)
		admin := &domain.User{ID: uuid.New(), Name: "Root", Role: domain.RoleAdmin}
		approved := pendingAssignment(student, prof, domain.StatusApproved)
		ctx := userCtx(admin.ID, admin.Role)

		m.users.EXPECT().GetByID(gomock.Any(), admin.ID).Return(admin, nil)
		m.assignments.EXPECT().GetByID(gomock.Any(), approved.ID).Return(approved, nil)

		_, err := svc.Get(ctx, approved.ID)
		require.NoError(t, err)
	})
}

// ── Concurrency guard ───────────────────────────────────────────────

func TestTransitionConflictSurfaces(t *testing.T) {
	deptID := uuid.New()
	svc, m := setupReview(t)
	student := testStudent(deptID)
	prof := testProfessor(deptID)
	submitted := pendingAssignment(student, prof, domain.StatusSubmitted)
	ctx := userCtx(prof.ID, prof.Role)

	m.users.EXPECT().GetByID(gomock.Any(), prof.ID).Return(prof, nil)
	m.assignments.EXPECT().GetByID(gomock.Any(), submitted.ID).Return(submitted, nil)
	m.assignments.EXPECT().ApplyTransition(gomock.Any(), gomock.Any()).
		Return(nil, errdefs.ErrConflict)

	_, err := svc.Reject(ctx, submitted.ID, "already handled elsewhere")
	assert.ErrorIs(t, err, errdefs.ErrConflict)
}
