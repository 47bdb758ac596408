package http

import (
	"strings"
	"testing"
)

func TestParseUserCSV(t *testing.T) {
	csv := `username,email,role,password
amara,amara@school.test,teacher,s3cretpass
jonas,jonas@school.test,student,letmein88
`
	rows, err := parseUserCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d", len(rows))
	}
	if rows[0].Username != "amara" || rows[0].Role != "teacher" || rows[0].Email != "amara@school.test" {
		t.Fatalf("first row: %+v", rows[0])
	}
	if rows[1].Password != "letmein88" {
		t.Fatalf("second row: %+v", rows[1])
	}
}

func TestParseUserCSVMissingColumn(t *testing.T) {
	if _, err := parseUserCSV(strings.NewReader("email\na@b.c\n")); err == nil {
		t.Fatal("csv without username column accepted")
	}
}

func TestValidUserRole(t *testing.T) {
	for _, r := range []string{"student", "teacher", "parent", "admin"} {
		if !validUserRole(r) {
			t.Errorf("%s rejected", r)
		}
	}
	if validUserRole("principal") {
		t.Error("unknown role accepted")
	}
}
