package repository

import (
	"testing"
	"time"

	"github.com/bitfantasy/garage-erp/internal/entity"
	"github.com/bitfantasy/garage-erp/internal/testutil"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func TestFormatNumber(t *testing.T) {
	cases := []struct {
		prefix string
		day    string
		seq    int
		want   string
	}{
		{PrefixSession, "20250831", 1, "SES-20250831-0001"},
		{PrefixJobCard, "20250831", 42, "JC-20250831-0042"},
		{PrefixMovement, "20251231", 9999, "MOV-20251231-9999"},
		{PrefixMovement, "20251231", 10000, "MOV-20251231-10000"},
	}
	for _, c := range cases {
		if got := FormatNumber(c.prefix, c.day, c.seq); got != c.want {
			t.Errorf("FormatNumber(%s, %s, %d) = %s, want %s", c.prefix, c.day, c.seq, got, c.want)
		}
	}
}

func TestParseSequence(t *testing.T) {
	if got := parseSequence("SES-20250831-0007", PrefixSession, "20250831"); got != 7 {
		t.Errorf("expected 7, got %d", got)
	}
	if got := parseSequence("JC-20250831-1234", PrefixJobCard, "20250831"); got != 1234 {
		t.Errorf("expected 1234, got %d", got)
	}
	if got := parseSequence("MOV-20250831-10000", PrefixMovement, "20250831"); got != 10000 {
		t.Errorf("expected 10000 for five-digit suffix, got %d", got)
	}
	if got := parseSequence("garbage", PrefixSession, "20250831"); got != 0 {
		t.Errorf("expected 0 for garbage, got %d", got)
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	number := FormatNumber(PrefixMovement, "20250101", 815)
	if got := parseSequence(number, PrefixMovement, "20250101"); got != 815 {
		t.Errorf("round trip lost sequence: %d", got)
	}
}

func TestNextNumberRollsPastFourDigits(t *testing.T) {
	db := testutil.SetupTestDB(t)
	day := time.Now().Format("20060102")

	// 当日已分配到第10000号：字典序下 9999 > 10000，
	// 取最大值必须按长度优先排序
	for _, seq := range []int{9999, 10000} {
		session := &entity.GarageSession{
			ID:              uuid.New().String(),
			CompanyID:       testutil.TestCompanyID,
			SessionNumber:   FormatNumber(PrefixSession, day, seq),
			ClientID:        "client-seq",
			ClientVehicleID: "vehicle-seq",
			Status:          entity.SessionStatusCheckedIn,
			CreatedBy:       "u1",
		}
		if err := db.Create(session).Error; err != nil {
			t.Fatalf("seed session %d: %v", seq, err)
		}
	}

	var number string
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		number, err = NextNumber(tx, entity.GarageSession{}.TableName(), "session_number",
			testutil.TestCompanyID, PrefixSession, time.Now())
		return err
	})
	if err != nil {
		t.Fatalf("next number: %v", err)
	}
	if want := FormatNumber(PrefixSession, day, 10001); number != want {
		t.Errorf("expected %s, got %s", want, number)
	}
}
