package errors_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/KirkDiggler/dogstory-api/internal/errors"
)

type ErrorsTestSuite struct {
	suite.Suite
}

func TestErrorsSuite(t *testing.T) {
	suite.Run(t, new(ErrorsTestSuite))
}

func (s *ErrorsTestSuite) TestNewError() {
	testCases := []struct {
		name     string
		code     errors.Code
		message  string
		expected string
	}{
		{
			name:     "not found error",
			code:     errors.CodeNotFound,
			message:  "map not found",
			expected: "NOT_FOUND: map not found",
		},
		{
			name:     "invalid argument error",
			code:     errors.CodeInvalidArgument,
			message:  "invalid move",
			expected: "INVALID_ARGUMENT: invalid move",
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			err := errors.New(tc.code, tc.message)
			s.Assert().Equal(tc.expected, err.Error())
			s.Assert().Equal(tc.code, err.Code)
		})
	}
}

func (s *ErrorsTestSuite) TestWrap() {
	baseErr := fmt.Errorf("connection reset")
	wrapped := errors.Wrap(baseErr, "failed to read records")

	s.Assert().Equal(errors.CodeInternal, wrapped.Code)
	s.Assert().Equal("failed to read records", wrapped.Message)
	s.Assert().Equal(baseErr, wrapped.Unwrap())
}

func (s *ErrorsTestSuite) TestWrapPreservesCodeAndCopiesMeta() {
	baseErr := errors.NotFound("token not found").WithMeta("token", "abc")
	wrapped := errors.Wrap(baseErr, "player lookup failed")
	wrapped.WithMeta("extra", 1)

	s.Assert().Equal(errors.CodeNotFound, wrapped.Code)
	s.Assert().Equal("abc", wrapped.Meta["token"])
	s.Assert().NotContains(baseErr.Meta, "extra")
}

func (s *ErrorsTestSuite) TestWrapNil() {
	s.Assert().Nil(errors.Wrap(nil, "should be nil"))
	s.Assert().Nil(errors.WrapWithCode(nil, errors.CodeNotFound, "should be nil"))
	s.Assert().Nil(errors.Persistence(nil, "should be nil"))
}

func (s *ErrorsTestSuite) TestErrorIs() {
	s.Assert().True(errors.Is(errors.Wrap(errors.NotFound("a"), "b"), errors.NotFound("c")))
	s.Assert().False(errors.NotFound("a").Is(errors.InvalidArgument("a")))
}

func (s *ErrorsTestSuite) TestGetCode() {
	s.Assert().Equal(errors.CodeNotFound, errors.GetCode(errors.Wrap(errors.NotFound("x"), "y")))
	s.Assert().Equal(errors.CodeInternal, errors.GetCode(fmt.Errorf("standard error")))
	s.Assert().Equal(errors.CodeOK, errors.GetCode(nil))
}

func (s *ErrorsTestSuite) TestGetMessage() {
	s.Assert().Equal("friendly", errors.GetMessage(errors.NotFound("friendly")))
	s.Assert().Equal("standard error", errors.GetMessage(fmt.Errorf("standard error")))
	s.Assert().Equal("", errors.GetMessage(nil))
}

func (s *ErrorsTestSuite) TestTaxonomy() {
	s.Run("configuration", func() {
		err := errors.Configurationf("road %d has no orientation", 3)
		s.Assert().True(errors.IsConfiguration(err))
		s.Assert().True(errors.IsInvalidArgument(err))
		s.Assert().True(errors.IsConfiguration(errors.Wrap(err, "load config")))
		s.Assert().False(errors.IsRetryable(err))
	})

	s.Run("persistence", func() {
		err := errors.Persistence(fmt.Errorf("dial tcp: refused"), "save retired players")
		s.Assert().True(errors.IsPersistence(err))
		s.Assert().True(errors.IsUnavailable(err))
		s.Assert().True(errors.IsRetryable(err))
	})

	s.Run("corrupt snapshot", func() {
		err := errors.CorruptSnapshot("map %q is not loaded", "town")
		s.Assert().True(errors.IsCorruptSnapshot(err))
		s.Assert().True(errors.IsDataLoss(err))
		s.Assert().False(errors.IsPersistence(err))
	})

	s.Run("plain errors carry no kind", func() {
		s.Assert().False(errors.IsConfiguration(fmt.Errorf("boom")))
		s.Assert().False(errors.IsCorruptSnapshot(nil))
	})
}

func (s *ErrorsTestSuite) TestGRPCConversion() {
	err := errors.NotFound("map not found").WithMeta("map_id", "town")

	grpcErr := errors.ToGRPCError(err)
	st, ok := status.FromError(grpcErr)
	s.Require().True(ok)
	s.Assert().Equal(codes.NotFound, st.Code())
	s.Assert().Equal("map not found", st.Message())

	back := errors.FromGRPCError(grpcErr)
	s.Assert().Equal(errors.CodeNotFound, errors.GetCode(back))
	s.Assert().Equal("town", errors.GetMeta(back)["map_id"])

	plain := errors.FromGRPCError(status.Error(codes.Unauthenticated, "bad token"))
	s.Assert().True(errors.IsUnauthenticated(plain))
	s.Assert().Equal("bad token", errors.GetMessage(plain))

	s.Assert().Equal(codes.Internal, status.Code(errors.ToGRPCError(fmt.Errorf("boom"))))
	s.Assert().Nil(errors.ToGRPCError(nil))
}

func (s *ErrorsTestSuite) TestGRPCCodeMapping() {
	testCases := []struct {
		code     errors.Code
		expected codes.Code
	}{
		{errors.CodeNotFound, codes.NotFound},
		{errors.CodeInvalidArgument, codes.InvalidArgument},
		{errors.CodeUnavailable, codes.Unavailable},
		{errors.CodeDataLoss, codes.DataLoss},
		{errors.CodeUnauthenticated, codes.Unauthenticated},
		{errors.CodeFailedPrecondition, codes.FailedPrecondition},
	}

	for _, tc := range testCases {
		s.Run(string(tc.code), func() {
			s.Assert().Equal(tc.expected, tc.code.GRPCCode())
			back := errors.FromGRPCError(status.Error(tc.expected, "x"))
			s.Assert().Equal(tc.code, errors.GetCode(back))
		})
	}

	s.Run("unmapped codes", func() {
		s.Assert().Equal(codes.Unknown, errors.Code("TEAPOT").GRPCCode())
		back := errors.FromGRPCError(status.Error(codes.AlreadyExists, "dup"))
		s.Assert().True(errors.IsInternal(back))
	})
}

func (s *ErrorsTestSuite) TestRetryableCodes() {
	s.Assert().True(errors.CodeUnavailable.Retryable())
	s.Assert().True(errors.CodeDeadlineExceeded.Retryable())
	s.Assert().False(errors.CodeNotFound.Retryable())
	s.Assert().False(errors.IsRetryable(nil))
}
