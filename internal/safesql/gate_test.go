package safesql

import (
	"errors"
	"testing"
)

func TestValidateRejectsDestructiveStatements(t *testing.T) {
	t.Parallel()

	rejected := []string{
		"",
		"drop table users",
		"DROP TABLE opportunities",
		"select 1; delete from accounts",
		"SELECT name FROM users; DELETE FROM users",
		"update opportunities set amount = 0",
		"UPDATE accounts SET arr = 1 WHERE id = 1",
		"insert into leads (name) values ('x')",
		"select * from users; TRUNCATE accounts",
		"explain select * from users",
	}
	for _, stmt := range rejected {
		if err := Validate(stmt); !errors.Is(err, ErrRejected) {
			t.Fatalf("Validate(%q) = %v, want ErrRejected", stmt, err)
		}
	}
}

func TestValidateAcceptsWellFormedSelect(t *testing.T) {
	t.Parallel()

	accepted := []string{
		"select a, count(*) from opportunities where app_type = 'legacy' group by a order by 2 desc limit 5",
		"SELECT u.name, SUM(o.amount) FROM users u JOIN opportunities o ON u.salesforce_id = o.owner_salesforce_id WHERE u.app_type = 'legacy' GROUP BY u.name",
		"  select 1  ",
		"with recent as (select 1) select * from recent",
	}
	for _, stmt := range accepted {
		if err := Validate(stmt); err != nil {
			t.Fatalf("Validate(%q) = %v, want nil", stmt, err)
		}
	}
}

func TestValidateIsCaseInsensitiveOnVerbs(t *testing.T) {
	t.Parallel()

	if err := Validate("select 1; DrOp TaBlE users"); !errors.Is(err, ErrRejected) {
		t.Fatalf("expected rejection of mixed-case destructive verb")
	}
}

func TestValidateAllowsVerbSubstringsInsideWords(t *testing.T) {
	t.Parallel()

	// "created" contains no standalone destructive verb followed by
	// whitespace; column names like salesforce_created_date must pass.
	stmt := "select salesforce_created_date from accounts where app_type = 'legacy'"
	if err := Validate(stmt); err != nil {
		t.Fatalf("Validate(%q) = %v, want nil", stmt, err)
	}
}
