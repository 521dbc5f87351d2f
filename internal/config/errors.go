package config

import "fmt"

// FileError reports a configuration file that failed to parse or to
// validate against the schema. Detail carries the parser's or schema
// checker's own message, which may span multiple lines.
type FileError struct {
	File   string
	Detail string
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %s", e.File, e.Detail)
}

// ValidationError reports a source definition that parsed cleanly but
// violates a relational constraint.
type ValidationError struct {
	Layer   string
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("layer %s: %s: %s", e.Layer, e.Field, e.Message)
}
