// Package errors provides the structured error type used across dogstory-api.
//
// Every error carries a Code, a user-facing message, an optional cause and
// free-form metadata. Codes map one to one onto gRPC status codes so the
// transport layer can convert with ToGRPCError.
//
// # Game taxonomy
//
// The game core distinguishes a few failure families:
//
//	errors.Configuration("road must be horizontal or vertical") // bad map data, startup aborts
//	errors.NotFoundf("map %q not found", id)                     // unknown token or map
//	errors.Persistence(err, "save retired players")              // store unreachable, retryable
//	errors.CorruptSnapshot("map %q is not loaded", id)           // restore cannot proceed
//
// A full bag is not an error at all: the pickup is simply skipped.
//
// # Wrapping
//
//	if err := repo.Save(ctx, input); err != nil {
//	    return errors.Wrap(err, "failed to save records")
//	}
//
// Wrap keeps the code of the wrapped error, WrapWithCode replaces it.
//
// # Validation
//
//	vb := errors.NewValidationBuilder()
//	errors.ValidateRequired("name", input.Name, vb)
//	if err := vb.Build(); err != nil {
//	    return err
//	}
package errors
