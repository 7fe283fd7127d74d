package sqlguard_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mythic3011/AED-Api/pkg/e"
	"github.com/mythic3011/AED-Api/pkg/sqlguard"
)

func TestCheck_RejectsInjectionPayloads(t *testing.T) {
	t.Parallel()

	payloads := []string{
		`"; DROP TABLE aeds; --`,
		`'; DELETE FROM reports`,
		`1 UNION SELECT password FROM users`,
		`union all select null, null`,
		`' OR '1'='1`,
		`admin' --`,
		`1=1 OR`,
		`OR 1=1`,
		`x /* hidden */ y`,
		`; truncate table aeds`,
		`exec sp_executesql`,
	}

	for _, payload := range payloads {
		err := sqlguard.Check("description", payload)
		assert.ErrorIs(t, err, e.ErrInjectionDetected, "payload %q must be rejected", payload)
	}
}

func TestCheck_PassesLegitimateText(t *testing.T) {
	t.Parallel()

	values := []string{
		"",
		"The AED cabinet next to the lift lobby is damaged",
		"O'Brien", // lone apostrophe in a name is fine
		"2/F, 114 Nathan Road, Tsim Sha Tsui",
		"Battery expired on 2026-01-15",
		"damaged",
		"incorrect_info",
	}

	for _, value := range values {
		assert.NoError(t, sqlguard.Check("description", value), "value %q must pass", value)
	}
}

func TestCheck_ErrorNamesParameterNotValue(t *testing.T) {
	t.Parallel()

	err := sqlguard.Check("reporter_name", `"; DROP TABLE aeds; --`)
	assert.ErrorIs(t, err, e.ErrInjectionDetected)
	assert.Contains(t, err.Error(), "reporter_name")
	assert.NotContains(t, err.Error(), "DROP TABLE")
}

func TestCheckAll(t *testing.T) {
	t.Parallel()

	assert.NoError(t, sqlguard.CheckAll(map[string]string{
		"description":   "pads missing",
		"reporter_name": "Chan Tai Man",
	}))

	err := sqlguard.CheckAll(map[string]string{
		"description":   "pads missing",
		"reporter_name": `' OR '1'='1`,
	})
	assert.ErrorIs(t, err, e.ErrInjectionDetected)
}
