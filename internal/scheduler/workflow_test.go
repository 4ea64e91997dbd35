package scheduler

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/railzwaylabs/salesanalytics/internal/loader"
	"github.com/railzwaylabs/salesanalytics/internal/sales/domain"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/testsuite"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) RunForDate(ctx context.Context, req domain.RunRequest) (*domain.RunResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*domain.RunResult)
	return res, args.Error(1)
}

func (m *MockService) RunRange(ctx context.Context, req domain.RangeRequest) ([]domain.RangeOutcome, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).([]domain.RangeOutcome)
	return res, args.Error(1)
}

func (m *MockService) Discover(ctx context.Context, inputDir string) ([]string, error) {
	args := m.Called(ctx, inputDir)
	res, _ := args.Get(0).([]string)
	return res, args.Error(1)
}

type WorkflowSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite

	env *testsuite.TestWorkflowEnvironment
	svc *MockService
}

func (s *WorkflowSuite) SetupTest() {
	s.env = s.NewTestWorkflowEnvironment()
	s.svc = new(MockService)
	s.env.RegisterWorkflow(DailySalesWorkflow)
	s.env.RegisterActivity(&Activities{Service: s.svc})
}

func forDate(date string) interface{} {
	return mock.MatchedBy(func(req domain.RunRequest) bool { return req.Date == date })
}

func (s *WorkflowSuite) TestRunsEveryDate() {
	s.svc.On("RunForDate", mock.Anything, forDate("2025-10-25")).Return(&domain.RunResult{Date: "2025-10-25", RowsProcessed: 3}, nil)
	s.svc.On("RunForDate", mock.Anything, forDate("2025-10-26")).Return(&domain.RunResult{Date: "2025-10-26", RowsProcessed: 5}, nil)

	s.env.ExecuteWorkflow(DailySalesWorkflow, DailySalesInput{Dates: []string{"2025-10-25", "2025-10-26"}, InputDir: "in", OutputDir: "out"})
	s.Require().True(s.env.IsWorkflowCompleted())
	s.Require().NoError(s.env.GetWorkflowError())

	var out DailySalesOutput
	s.Require().NoError(s.env.GetWorkflowResult(&out))
	s.Equal(0, out.Failed)
	s.Require().Len(out.Outcomes, 2)
	s.Equal(3, out.Outcomes[0].Result.RowsProcessed)
	s.Equal(5, out.Outcomes[1].Result.RowsProcessed)
}

func (s *WorkflowSuite) TestSchemaErrorIsNotRetried() {
	schemaErr := &domain.SchemaError{Source: domain.SourceOrders, Missing: []string{"qty"}}
	s.svc.On("RunForDate", mock.Anything, forDate("2025-10-25")).Return(nil, schemaErr).Once()
	s.svc.On("RunForDate", mock.Anything, forDate("2025-10-26")).
		Return(nil, fmt.Errorf("%w: no orders file", loader.ErrBatchNotFound)).Once()

	s.env.ExecuteWorkflow(DailySalesWorkflow, DailySalesInput{Dates: []string{"2025-10-25", "2025-10-26"}})
	s.Require().NoError(s.env.GetWorkflowError())

	var out DailySalesOutput
	s.Require().NoError(s.env.GetWorkflowResult(&out))
	s.Equal(2, out.Failed)
	s.Equal(ErrTypeSchema, out.Outcomes[0].ErrorType)
	s.Equal(ErrTypeBatchNotFound, out.Outcomes[1].ErrorType)
	s.svc.AssertNumberOfCalls(s.T(), "RunForDate", 2)
}

func (s *WorkflowSuite) TestTransientErrorIsRetried() {
	s.svc.On("RunForDate", mock.Anything, forDate("2025-10-25")).Return(nil, errors.New("disk full")).Twice()
	s.svc.On("RunForDate", mock.Anything, forDate("2025-10-25")).Return(&domain.RunResult{Date: "2025-10-25"}, nil).Once()

	s.env.ExecuteWorkflow(DailySalesWorkflow, DailySalesInput{Dates: []string{"2025-10-25"}})
	s.Require().NoError(s.env.GetWorkflowError())

	var out DailySalesOutput
	s.Require().NoError(s.env.GetWorkflowResult(&out))
	s.Equal(0, out.Failed)
	s.svc.AssertNumberOfCalls(s.T(), "RunForDate", 3)
}

func (s *WorkflowSuite) TestDiscoversDatesWhenNoneGiven() {
	s.svc.On("Discover", mock.Anything, "in").Return([]string{"2025-10-25"}, nil)
	s.svc.On("RunForDate", mock.Anything, forDate("2025-10-25")).Return(&domain.RunResult{Date: "2025-10-25"}, nil)

	s.env.ExecuteWorkflow(DailySalesWorkflow, DailySalesInput{InputDir: "in"})
	s.Require().NoError(s.env.GetWorkflowError())

	var out DailySalesOutput
	s.Require().NoError(s.env.GetWorkflowResult(&out))
	s.Require().Len(out.Outcomes, 1)
	s.Equal("2025-10-25", out.Outcomes[0].Date)
}

func TestWorkflowSuite(t *testing.T) {
	suite.Run(t, new(WorkflowSuite))
}

func TestWorkflowID(t *testing.T) {
	require.Equal(t, "sales-daily-2025-10-25-2025-10-27", WorkflowID(DailySalesInput{Dates: []string{"2025-10-25", "2025-10-26", "2025-10-27"}}))
	require.Equal(t, "sales-daily-discovered", WorkflowID(DailySalesInput{}))
}
