package mocks

import (
	"context"
	"reflect"
	"time"

	"github.com/google/uuid"
	"go.uber.org/mock/gomock"

	"github.com/jatinpathania/University-assignment-approval-system/internal/domain"
	"github.com/jatinpathania/University-assignment-approval-system/internal/repository"
	"github.com/jatinpathania/University-assignment-approval-system/internal/storage"
)

type MockAssignmentRepository struct {
	ctrl     *gomock.Controller
	recorder *MockAssignmentRepositoryMockRecorder
}

type MockAssignmentRepositoryMockRecorder struct {
	mock *MockAssignmentRepository
}

func NewMockAssignmentRepository(ctrl *gomock.Controller) *MockAssignmentRepository {
	mock := &MockAssignmentRepository{ctrl: ctrl}
	mock.recorder = &MockAssignmentRepositoryMockRecorder{mock}
	return mock
}

func (m *MockAssignmentRepository) EXPECT() *MockAssignmentRepositoryMockRecorder {
	return m.recorder
}

func (m *MockAssignmentRepository) Create(ctx context.Context, assignment *domain.Assignment) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Create", ctx, assignment)
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockAssignmentRepositoryMockRecorder) Create(ctx, assignment interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Create", reflect.TypeOf((*MockAssignmentRepository)(nil).Create), ctx, assignment)
}

func (m *MockAssignmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Assignment, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetByID", ctx, id)
	ret0, _ := ret[0].(*domain.Assignment)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockAssignmentRepositoryMockRecorder) GetByID(ctx, id interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetByID", reflect.TypeOf((*MockAssignmentRepository)(nil).GetByID), ctx, id)
}

func (m *MockAssignmentRepository) ApplyTransition(ctx context.Context, upd repository.TransitionUpdate) (*domain.Assignment, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ApplyTransition", ctx, upd)
	ret0, _ := ret[0].(*domain.Assignment)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockAssignmentRepositoryMockRecorder) ApplyTransition(ctx, upd interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ApplyTransition", reflect.TypeOf((*MockAssignmentRepository)(nil).ApplyTransition), ctx, upd)
}

func (m *MockAssignmentRepository) CountByStatus(ctx context.Context, filter repository.StatusFilter) (map[domain.Status]int, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "CountByStatus", ctx, filter)
	ret0, _ := ret[0].(map[domain.Status]int)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockAssignmentRepositoryMockRecorder) CountByStatus(ctx, filter interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "CountByStatus", reflect.TypeOf((*MockAssignmentRepository)(nil).CountByStatus), ctx, filter)
}

func (m *MockAssignmentRepository) CountBlockingDeletion(ctx context.Context, userID uuid.UUID) (int, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "CountBlockingDeletion", ctx, userID)
	ret0, _ := ret[0].(int)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockAssignmentRepositoryMockRecorder) CountBlockingDeletion(ctx, userID interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "CountBlockingDeletion", reflect.TypeOf((*MockAssignmentRepository)(nil).CountBlockingDeletion), ctx, userID)
}

type MockUserRepository struct {
	ctrl     *gomock.Controller
	recorder *MockUserRepositoryMockRecorder
}

type MockUserRepositoryMockRecorder struct {
	mock *MockUserRepository
}

func NewMockUserRepository(ctrl *gomock.Controller) *MockUserRepository {
	mock := &MockUserRepository{ctrl: ctrl}
	mock.recorder = &MockUserRepositoryMockRecorder{mock}
	return mock
}

func (m *MockUserRepository) EXPECT() *MockUserRepositoryMockRecorder {
	return m.recorder
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Create", ctx, user)
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockUserRepositoryMockRecorder) Create(ctx, user interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Create", reflect.TypeOf((*MockUserRepository)(nil).Create), ctx, user)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetByID", ctx, id)
	ret0, _ := ret[0].(*domain.User)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockUserRepositoryMockRecorder) GetByID(ctx, id interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetByID", reflect.TypeOf((*MockUserRepository)(nil).GetByID), ctx, id)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetByEmail", ctx, email)
	ret0, _ := ret[0].(*domain.User)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockUserRepositoryMockRecorder) GetByEmail(ctx, email interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetByEmail", reflect.TypeOf((*MockUserRepository)(nil).GetByEmail), ctx, email)
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, id uuid.UUID, name, email string, phone *string) (*domain.User, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "UpdateProfile", ctx, id, name, email, phone)
	ret0, _ := ret[0].(*domain.User)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockUserRepositoryMockRecorder) UpdateProfile(ctx, id, name, email, phone interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "UpdateProfile", reflect.TypeOf((*MockUserRepository)(nil).UpdateProfile), ctx, id, name, email, phone)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Delete", ctx, id)
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockUserRepositoryMockRecorder) Delete(ctx, id interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Delete", reflect.TypeOf((*MockUserRepository)(nil).Delete), ctx, id)
}

type MockDepartmentRepository struct {
	ctrl     *gomock.Controller
	recorder *MockDepartmentRepositoryMockRecorder
}

type MockDepartmentRepositoryMockRecorder struct {
	mock *MockDepartmentRepository
}

func NewMockDepartmentRepository(ctrl *gomock.Controller) *MockDepartmentRepository {
	mock := &MockDepartmentRepository{ctrl: ctrl}
	mock.recorder = &MockDepartmentRepositoryMockRecorder{mock}
	return mock
}

func (m *MockDepartmentRepository) EXPECT() *MockDepartmentRepositoryMockRecorder {
	return m.recorder
}

func (m *MockDepartmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Department, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetByID", ctx, id)
	ret0, _ := ret[0].(*domain.Department)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockDepartmentRepositoryMockRecorder) GetByID(ctx, id interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetByID", reflect.TypeOf((*MockDepartmentRepository)(nil).GetByID), ctx, id)
}

type MockChallengeRepository struct {
	ctrl     *gomock.Controller
	recorder *MockChallengeRepositoryMockRecorder
}

type MockChallengeRepositoryMockRecorder struct {
	mock *MockChallengeRepository
}

func NewMockChallengeRepository(ctrl *gomock.Controller) *MockChallengeRepository {
	mock := &MockChallengeRepository{ctrl: ctrl}
	mock.recorder = &MockChallengeRepositoryMockRecorder{mock}
	return mock
}

func (m *MockChallengeRepository) EXPECT() *MockChallengeRepositoryMockRecorder {
	return m.recorder
}

func (m *MockChallengeRepository) Upsert(ctx context.Context, challenge *domain.Challenge) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Upsert", ctx, challenge)
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockChallengeRepositoryMockRecorder) Upsert(ctx, challenge interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Upsert", reflect.TypeOf((*MockChallengeRepository)(nil).Upsert), ctx, challenge)
}

func (m *MockChallengeRepository) RefreshCode(ctx context.Context, userID uuid.UUID, purpose domain.ChallengePurpose, code string, expiresAt time.Time) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "RefreshCode", ctx, userID, purpose, code, expiresAt)
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockChallengeRepositoryMockRecorder) RefreshCode(ctx, userID, purpose, code, expiresAt interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "RefreshCode", reflect.TypeOf((*MockChallengeRepository)(nil).RefreshCode), ctx, userID, purpose, code, expiresAt)
}

func (m *MockChallengeRepository) Get(ctx context.Context, userID uuid.UUID, purpose domain.ChallengePurpose) (*domain.Challenge, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Get", ctx, userID, purpose)
	ret0, _ := ret[0].(*domain.Challenge)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockChallengeRepositoryMockRecorder) Get(ctx, userID, purpose interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Get", reflect.TypeOf((*MockChallengeRepository)(nil).Get), ctx, userID, purpose)
}

func (m *MockChallengeRepository) Delete(ctx context.Context, userID uuid.UUID, purpose domain.ChallengePurpose) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Delete", ctx, userID, purpose)
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockChallengeRepositoryMockRecorder) Delete(ctx, userID, purpose interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Delete", reflect.TypeOf((*MockChallengeRepository)(nil).Delete), ctx, userID, purpose)
}

type MockDocumentStore struct {
	ctrl     *gomock.Controller
	recorder *MockDocumentStoreMockRecorder
}

type MockDocumentStoreMockRecorder struct {
	mock *MockDocumentStore
}

func NewMockDocumentStore(ctrl *gomock.Controller) *MockDocumentStore {
	mock := &MockDocumentStore{ctrl: ctrl}
	mock.recorder = &MockDocumentStoreMockRecorder{mock}
	return mock
}

func (m *MockDocumentStore) EXPECT() *MockDocumentStoreMockRecorder {
	return m.recorder
}

func (m *MockDocumentStore) Upload(ctx context.Context, data []byte, filename string) (*storage.UploadResult, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Upload", ctx, data, filename)
	ret0, _ := ret[0].(*storage.UploadResult)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockDocumentStoreMockRecorder) Upload(ctx, data, filename interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Upload", reflect.TypeOf((*MockDocumentStore)(nil).Upload), ctx, data, filename)
}

type MockNotifier struct {
	ctrl     *gomock.Controller
	recorder *MockNotifierMockRecorder
}

type MockNotifierMockRecorder struct {
	mock *MockNotifier
}

func NewMockNotifier(ctrl *gomock.Controller) *MockNotifier {
	mock := &MockNotifier{ctrl: ctrl}
	mock.recorder = &MockNotifierMockRecorder{mock}
	return mock
}

func (m *MockNotifier) EXPECT() *MockNotifierMockRecorder {
	return m.recorder
}

func (m *MockNotifier) Send(ctx context.Context, notification *domain.Notification) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Send", ctx, notification)
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockNotifierMockRecorder) Send(ctx, notification interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Send", reflect.TypeOf((*MockNotifier)(nil).Send), ctx, notification)
}

func (m *MockNotifier) SendAsync(ctx context.Context, notification *domain.Notification) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "SendAsync", ctx, notification)
}

func (mr *MockNotifierMockRecorder) SendAsync(ctx, notification interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "SendAsync", reflect.TypeOf((*MockNotifier)(nil).SendAsync), ctx, notification)
}

type MockVerifier struct {
	ctrl     *gomock.Controller
	recorder *MockVerifierMockRecorder
}

type MockVerifierMockRecorder struct {
	mock *MockVerifier
}

func NewMockVerifier(ctrl *gomock.Controller) *MockVerifier {
	mock := &MockVerifier{ctrl: ctrl}
	mock.recorder = &MockVerifierMockRecorder{mock}
	return mock
}

func (m *MockVerifier) EXPECT() *MockVerifierMockRecorder {
	return m.recorder
}

func (m *MockVerifier) Issue(ctx context.Context, user *domain.User, purpose domain.ChallengePurpose, payload interface{}) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Issue", ctx, user, purpose, payload)
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockVerifierMockRecorder) Issue(ctx, user, purpose, payload interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Issue", reflect.TypeOf((*MockVerifier)(nil).Issue), ctx, user, purpose, payload)
}

func (m *MockVerifier) Confirm(ctx context.Context, userID uuid.UUID, purpose domain.ChallengePurpose, code string, payload interface{}) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Confirm", ctx, userID, purpose, code, payload)
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockVerifierMockRecorder) Confirm(ctx, userID, purpose, code, payload interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Confirm", reflect.TypeOf((*MockVerifier)(nil).Confirm), ctx, userID, purpose, code, payload)
}

func (m *MockVerifier) Resend(ctx context.Context, user *domain.User, purpose domain.ChallengePurpose) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Resend", ctx, user, purpose)
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockVerifierMockRecorder) Resend(ctx, user, purpose interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Resend", reflect.TypeOf((*MockVerifier)(nil).Resend), ctx, user, purpose)
}

func (m *MockVerifier) Consume(ctx context.Context, userID uuid.UUID, purpose domain.ChallengePurpose) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Consume", ctx, userID, purpose)
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockVerifierMockRecorder) Consume(ctx, userID, purpose interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Consume", reflect.TypeOf((*MockVerifier)(nil).Consume), ctx, userID, purpose)
}

type MockPasswordHasher struct {
	ctrl     *gomock.Controller
	recorder *MockPasswordHasherMockRecorder
}

type MockPasswordHasherMockRecorder struct {
	mock *MockPasswordHasher
}

func NewMockPasswordHasher(ctrl *gomock.Controller) *MockPasswordHasher {
	mock := &MockPasswordHasher{ctrl: ctrl}
	mock.recorder = &MockPasswordHasherMockRecorder{mock}
	return mock
}

func (m *MockPasswordHasher) EXPECT() *MockPasswordHasherMockRecorder {
	return m.recorder
}

func (m *MockPasswordHasher) Hash(password string) (string, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Hash", password)
	ret0, _ := ret[0].(string)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockPasswordHasherMockRecorder) Hash(password interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Hash", reflect.TypeOf((*MockPasswordHasher)(nil).Hash), password)
}

func (m *MockPasswordHasher) Compare(hash, password string) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Compare", hash, password)
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockPasswordHasherMockRecorder) Compare(hash, password interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Compare", reflect.TypeOf((*MockPasswordHasher)(nil).Compare), hash, password)
}
