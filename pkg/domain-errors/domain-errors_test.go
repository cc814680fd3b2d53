package domainerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
)

// DomainErrorsSuite tests the domain error primitives.
//
// These are the core error primitives used at every trust boundary. Unit
// tests ensure invariants like "wrapped domain errors preserve original code"
// and "errors.Is matches by code" are maintained.
type DomainErrorsSuite struct {
	suite.Suite
}

func TestDomainErrorsSuite(t *testing.T) {
	suite.Run(t, new(DomainErrorsSuite))
}

func (s *DomainErrorsSuite) TestErrorInterface() {
	s.Run("returns message when present", func() {
		err := &Error{Code: CodeInvalidCredentials, Message: "invalid username or password"}
		s.Equal("invalid username or password", err.Error())
	})

	s.Run("returns code when message is empty", func() {
		err := &Error{Code: CodeAccountLocked}
		s.Equal("account_locked", err.Error())
	})
}

func (s *DomainErrorsSuite) TestUnwrap() {
	s.Run("returns wrapped error", func() {
		inner := errors.New("store unavailable")
		err := &Error{Code: CodeInternal, Message: "service error", Err: inner}
		s.Equal(inner, err.Unwrap())
	})

	s.Run("returns nil when no wrapped error", func() {
		err := &Error{Code: CodeNotFound, Message: "not found"}
		s.Nil(err.Unwrap())
	})
}

func (s *DomainErrorsSuite) TestIsMatching() {
	s.Run("matches by code only", func() {
		err1 := &Error{Code: CodeTicketInvalid, Message: "ticket expired"}
		err2 := &Error{Code: CodeTicketInvalid, Message: "ticket missing"}
		s.True(err1.Is(err2))
	})

	s.Run("does not match different codes", func() {
		err1 := &Error{Code: CodeDecryption}
		err2 := &Error{Code: CodeIntegrity}
		s.False(err1.Is(err2))
	})

	s.Run("does not match non-domain errors", func() {
		err1 := &Error{Code: CodeNotFound}
		err2 := errors.New("not found")
		s.False(err1.Is(err2))
	})

	s.Run("works with errors.Is through chain", func() {
		inner := &Error{Code: CodeAuditWriteFailed, Message: "append failed"}
		wrapped := Wrap(inner, CodeInternal, "commit aborted")
		s.True(errors.Is(wrapped, &Error{Code: CodeAuditWriteFailed}))
	})
}

func (s *DomainErrorsSuite) TestWrapPreservesCode() {
	inner := New(CodeTokenReused, "refresh token already used")
	wrapped := Wrap(inner, CodeInternal, "rotation failed")

	var de *Error
	s.Require().True(errors.As(wrapped, &de))
	s.Equal(CodeTokenReused, de.Code)
	s.Equal("rotation failed", de.Message)
}

func (s *DomainErrorsSuite) TestHasCode() {
	err := New(CodeTwoFactorRequired, "two-factor code required")
	s.True(HasCode(err, CodeTwoFactorRequired))
	s.False(HasCode(err, CodeTwoFactorInvalid))
	s.False(HasCode(errors.New("plain"), CodeTwoFactorRequired))
}
