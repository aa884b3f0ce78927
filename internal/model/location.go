package model

// Location is a desired-state place (site, room, rack) forming a tree via
// ParentID. The parent graph is acyclic; sibling names are unique within
// a parent. Acyclicity is enforced at the store boundary by walking
// ancestors, not here.
type Location struct {
	ID          string
	Name        string
	ParentID    string // empty means a root location
	Lifecycle   Lifecycle
	CustomData  Value
	Version     int
	CreatedAtMS int64
	UpdatedAtMS int64
}

func (l *Location) Validate() *FieldErrors {
	var errs FieldErrors
	if l.Name == "" {
		errs.Add("name", "must not be empty")
	}
	if !l.Lifecycle.Valid() {
		errs.Add("lifecycle", "invalid lifecycle value")
	}
	if _, ok := l.CustomData.AsObject(); !ok && !l.CustomData.IsNull() {
		errs.Add("custom_data", "must be a JSON object")
	}
	if errs.Empty() {
		return nil
	}
	return &errs
}
