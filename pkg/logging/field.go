package logging

// StringField creates a Field with a string value.
func StringField(key, value string) Field {
	return Field{Key: key, Value: value}
}

// IntField creates a Field with an integer value.
func IntField(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// BoolField creates a Field with a boolean value.
func BoolField(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

// Float64Field creates a Field with a float64 value.
func Float64Field(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

// ErrorField creates an "error" Field. A nil error is logged
// as "<nil>".
func ErrorField(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: "<nil>"}
	}
	return Field{Key: "error", Value: err.Error()}
}

// RuleField tags an entry with a rule display name.
func RuleField(name string) Field {
	return Field{Key: "rule", Value: name}
}

// CheckField tags an entry with a check display name.
func CheckField(name string) Field {
	return Field{Key: "check", Value: name}
}

// SubjectField tags an entry with the audited subject id.
func SubjectField(id string) Field {
	return Field{Key: "subject", Value: id}
}
