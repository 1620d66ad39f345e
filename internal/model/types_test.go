package model

import "testing"

func TestRole_Valid(t *testing.T) {
	for _, r := range []Role{RoleManager, RoleMember} {
		if !r.Valid() {
			t.Errorf("%s should be valid", r)
		}
	}
	for _, r := range []Role{"", "ADMIN", "manager"} {
		if r.Valid() {
			t.Errorf("%q should not be valid", r)
		}
	}
}

func TestStatus_Valid(t *testing.T) {
	for _, s := range []Status{StatusNew, StatusInProgress, StatusPendingApproval, StatusClosed} {
		if !s.Valid() {
			t.Errorf("%s should be valid", s)
		}
	}
	for _, s := range []Status{"", "OPEN", "closed"} {
		if s.Valid() {
			t.Errorf("%q should not be valid", s)
		}
	}
}

func TestFieldType_Valid(t *testing.T) {
	for _, ft := range []FieldType{FieldText, FieldNumber, FieldChoice, FieldFile} {
		if !ft.Valid() {
			t.Errorf("%s should be valid", ft)
		}
	}
	for _, ft := range []FieldType{"", "DATE", "text"} {
		if ft.Valid() {
			t.Errorf("%q should not be valid", ft)
		}
	}
}
