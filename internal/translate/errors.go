package translate

import "fmt"

// ProviderError wraps an LLM transport or provider-side failure. Dependency
// class: the question was fine, the upstream call was not.
type ProviderError struct {
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("llm provider call failed: %v", e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ValidationError marks generated or submitted SQL that failed the lexical
// checks. Client-input class; never cached.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("generated SQL is invalid: %s", e.Reason)
}

// SafetyError marks SQL rejected by the read-only safety gate. Client-input
// class; never cached.
type SafetyError struct{}

func (e *SafetyError) Error() string {
	return "query contains potentially unsafe operations"
}

// DatabaseError wraps a connection, catalog or execution failure from the
// target database.
type DatabaseError struct {
	Err error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("database error: %v", e.Err)
}

func (e *DatabaseError) Unwrap() error { return e.Err }
