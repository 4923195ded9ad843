package availability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEmptyInputs(t *testing.T) {
	for _, raw := range []string{"", "   ", "null"} {
		store := Parse(raw)
		assert.Equal(t, KindEmpty, store.Kind(), "raw=%q", raw)
		assert.Empty(t, store.HoursFor("Senin"))
	}
}

func TestParseStructured(t *testing.T) {
	store := Parse(`{"Senin":[14,8,10],"Rabu":[]}`)
	require.Equal(t, KindStructured, store.Kind())
	assert.Equal(t, []int{8, 10, 14}, store.HoursFor("Senin"))
	assert.True(t, store.HasDay("Rabu"))
	assert.Empty(t, store.HoursFor("Rabu"))
	assert.False(t, store.HasDay("Kamis"))
}

func TestParseNormalisesNumeralStringsAndDuplicates(t *testing.T) {
	store := Parse(`{"Senin":["8",10,"10",8,"x",99,-1]}`)
	require.Equal(t, KindStructured, store.Kind())
	assert.Equal(t, []int{8, 10}, store.HoursFor("Senin"))
}

func TestParseCanonicalisesDayCase(t *testing.T) {
	store := Parse(`{"senin":[9]}`)
	assert.Equal(t, []int{9}, store.HoursFor("Senin"))
	assert.Equal(t, []int{9}, store.HoursFor("SENIN"))
}

func TestParseMalformedNeverFails(t *testing.T) {
	for _, raw := range []string{
		"Tersedia hari Senin dan Rabu",
		"{broken json",
		`["Senin"]`,
		`"cuma catatan"`,
		"12345",
	} {
		store := Parse(raw)
		assert.Equal(t, KindLegacy, store.Kind(), "raw=%q", raw)
		assert.Equal(t, raw, store.Note(), "raw=%q", raw)
		assert.Empty(t, store.HoursFor("Senin"), "raw=%q", raw)
	}
}

func TestSerializeParseRoundTrip(t *testing.T) {
	original := Store{}.ToggleHour("Senin", 8).ToggleHour("Senin", 14).ToggleHour("Sabtu", 0)
	parsed := Parse(original.Serialize())
	assert.Equal(t, original.Days(), parsed.Days())
	assert.Equal(t, KindStructured, parsed.Kind())
}

func TestSerializeLegacyRoundTripsVerbatim(t *testing.T) {
	raw := "Tersedia hari Senin dan Rabu"
	store := Parse(raw)
	assert.Equal(t, raw, store.Serialize())
	assert.Equal(t, raw, Parse(store.Serialize()).Note())
}

func TestSerializeEmptyStore(t *testing.T) {
	assert.Equal(t, "{}", Store{}.Serialize())
}

func TestToggleDayAddsThenRemoves(t *testing.T) {
	base := Store{}
	activated := base.ToggleDay("Kamis")
	require.True(t, activated.HasDay("Kamis"))
	assert.Empty(t, activated.HoursFor("Kamis"))

	removed := activated.ToggleDay("Kamis")
	assert.False(t, removed.HasDay("Kamis"))
}

func TestToggleDayClearsHours(t *testing.T) {
	store := Store{}.ToggleHour("Jumat", 9).ToggleHour("Jumat", 10)
	cleared := store.ToggleDay("Jumat")
	assert.False(t, cleared.HasDay("Jumat"))

	reactivated := cleared.ToggleDay("Jumat")
	assert.True(t, reactivated.HasDay("Jumat"))
	assert.Empty(t, reactivated.HoursFor("Jumat"))
}

func TestToggleHourDoubleToggleIsIdentity(t *testing.T) {
	store := Parse(`{"Senin":[8,10,14]}`)
	for _, hour := range []int{0, 9, 10, 23} {
		toggled := store.ToggleHour("Senin", hour).ToggleHour("Senin", hour)
		assert.Equal(t, store.HoursFor("Senin"), toggled.HoursFor("Senin"), "hour=%d", hour)
	}
}

func TestToggleHourKeepsSortedOrder(t *testing.T) {
	store := Store{}.ToggleHour("Selasa", 14).ToggleHour("Selasa", 8).ToggleHour("Selasa", 10)
	assert.Equal(t, []int{8, 10, 14}, store.HoursFor("Selasa"))
}

func TestToggleHourCreatesMissingDay(t *testing.T) {
	store := Store{}.ToggleHour("Minggu", 23)
	assert.Equal(t, []int{23}, store.HoursFor("Minggu"))
}

func TestToggleDoesNotMutateReceiver(t *testing.T) {
	base := Parse(`{"Senin":[8]}`)
	_ = base.ToggleHour("Senin", 8)
	_ = base.ToggleDay("Senin")
	assert.Equal(t, []int{8}, base.HoursFor("Senin"))
}

func TestParseAcceptsMixedHourValueTypes(t *testing.T) {
	store := Parse(`{"Senin":[8,"10"],"Rabu":"bukan array"}`)
	require.Equal(t, KindStructured, store.Kind())
	assert.Equal(t, []int{8, 10}, store.HoursFor("Senin"))
	assert.True(t, store.HasDay("Rabu"))
	assert.Empty(t, store.HoursFor("Rabu"))
}
