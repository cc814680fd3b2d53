package codec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"medisync/internal/crypto"
	dErrors "medisync/pkg/domain-errors"
)

type countingObserver struct {
	encrypted, decrypted, failed int
}

func (o *countingObserver) FieldEncrypted()   { o.encrypted++ }
func (o *countingObserver) FieldDecrypted()   { o.decrypted++ }
func (o *countingObserver) DecryptionFailed() { o.failed++ }

type CodecSuite struct {
	suite.Suite
	codec    *Codec
	observer *countingObserver
}

func (s *CodecSuite) SetupTest() {
	km, err := crypto.DeriveKey([]byte("codec-test-secret"))
	s.Require().NoError(err)
	cipher, err := crypto.NewCipher(km)
	s.Require().NoError(err)
	s.observer = &countingObserver{}
	s.codec = New(cipher, WithObserver(s.observer))
}

func TestCodecSuite(t *testing.T) {
	suite.Run(t, new(CodecSuite))
}

func (s *CodecSuite) TestStringRoundTrip() {
	value := "Jane Q. Patient"
	stored, err := s.codec.EncodeString(&value)
	s.Require().NoError(err)
	s.Require().NotNil(stored)
	s.NotEqual(value, *stored)

	decoded, err := s.codec.DecodeString(stored)
	s.Require().NoError(err)
	s.Equal(value, *decoded)
	s.Equal(1, s.observer.encrypted)
	s.Equal(1, s.observer.decrypted)
}

func (s *CodecSuite) TestNilPassthrough() {
	stored, err := s.codec.EncodeString(nil)
	s.Require().NoError(err)
	s.Nil(stored)

	decoded, err := s.codec.DecodeString(nil)
	s.Require().NoError(err)
	s.Nil(decoded)

	storedTime, err := s.codec.EncodeTime(nil)
	s.Require().NoError(err)
	s.Nil(storedTime)

	decodedTime, err := s.codec.DecodeTime(nil)
	s.Require().NoError(err)
	s.Nil(decodedTime)

	s.Zero(s.observer.encrypted)
	s.Zero(s.observer.decrypted)
}

func (s *CodecSuite) TestTimeCanonicalization() {
	loc, err := time.LoadLocation("America/New_York")
	s.Require().NoError(err)
	dob := time.Date(1987, time.March, 14, 9, 30, 0, 0, loc)

	stored, err := s.codec.EncodeTime(&dob)
	s.Require().NoError(err)

	decoded, err := s.codec.DecodeTime(stored)
	s.Require().NoError(err)
	s.True(dob.Equal(*decoded), "canonicalization must be lossless")
	s.Equal(time.UTC, decoded.Location())
}

func (s *CodecSuite) TestDecodeCorruptValue() {
	garbage := "not-an-envelope"
	_, err := s.codec.DecodeString(&garbage)
	s.True(dErrors.HasCode(err, dErrors.CodeDecryption))
	s.Equal(1, s.observer.failed)
}

func (s *CodecSuite) TestDecodeTimeRejectsNonDatePlaintext() {
	value := "free text, not a date"
	stored, err := s.codec.EncodeString(&value)
	s.Require().NoError(err)

	_, err = s.codec.DecodeTime(stored)
	s.True(dErrors.HasCode(err, dErrors.CodeDecryption))
}
