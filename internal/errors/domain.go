package errors

import "fmt"

const (
	metaKind = "kind"

	kindConfiguration   = "configuration"
	kindPersistence     = "persistence"
	kindCorruptSnapshot = "corrupt_snapshot"
)

// Configuration reports malformed game or map configuration.
// It is fatal at load time.
func Configuration(message string) *Error {
	return InvalidArgument(message).WithMeta(metaKind, kindConfiguration)
}

// Configurationf is Configuration with a formatted message
func Configurationf(format string, args ...interface{}) *Error {
	return Configuration(fmt.Sprintf(format, args...))
}

// Persistence wraps a storage failure. Persistence errors are retryable.
func Persistence(err error, message string) *Error {
	if err == nil {
		return nil
	}
	return WrapWithCode(err, CodeUnavailable, message).WithMeta(metaKind, kindPersistence)
}

// CorruptSnapshot reports a snapshot that cannot be restored
func CorruptSnapshot(format string, args ...interface{}) *Error {
	return Newf(CodeDataLoss, format, args...).WithMeta(metaKind, kindCorruptSnapshot)
}

// IsConfiguration checks if an error came from configuration loading
func IsConfiguration(err error) bool {
	return hasKind(err, kindConfiguration)
}

// IsPersistence checks if an error is a storage failure
func IsPersistence(err error) bool {
	return hasKind(err, kindPersistence)
}

// IsCorruptSnapshot checks if an error is an unrestorable snapshot
func IsCorruptSnapshot(err error) bool {
	return hasKind(err, kindCorruptSnapshot)
}

// IsRetryable reports whether retrying the failed operation may succeed
func IsRetryable(err error) bool {
	return err != nil && GetCode(err).Retryable()
}

func hasKind(err error, kind string) bool {
	meta := GetMeta(err)
	if meta == nil {
		return false
	}
	v, ok := meta[metaKind].(string)
	return ok && v == kind
}
