package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEntryFingerprintDeterministic(t *testing.T) {
	published := time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC)

	first := EntryFingerprint("feed-1", "guid-1", "https://example.com/a", "Titel", "Zusammenfassung", &published)
	second := EntryFingerprint("feed-1", "guid-1", "https://example.com/a", "Titel", "Zusammenfassung", &published)

	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
}

func TestEntryFingerprintSensitiveToEachAttribute(t *testing.T) {
	published := time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC)
	later := published.Add(time.Hour)
	base := EntryFingerprint("feed-1", "guid-1", "https://example.com/a", "Titel", "Text", &published)

	assert.NotEqual(t, base, EntryFingerprint("feed-2", "guid-1", "https://example.com/a", "Titel", "Text", &published))
	assert.NotEqual(t, base, EntryFingerprint("feed-1", "guid-2", "https://example.com/a", "Titel", "Text", &published))
	assert.NotEqual(t, base, EntryFingerprint("feed-1", "guid-1", "https://example.com/b", "Titel", "Text", &published))
	assert.NotEqual(t, base, EntryFingerprint("feed-1", "guid-1", "https://example.com/a", "Anders", "Text", &published))
	assert.NotEqual(t, base, EntryFingerprint("feed-1", "guid-1", "https://example.com/a", "Titel", "Anders", &published))
	assert.NotEqual(t, base, EntryFingerprint("feed-1", "guid-1", "https://example.com/a", "Titel", "Text", &later))
	assert.NotEqual(t, base, EntryFingerprint("feed-1", "guid-1", "https://example.com/a", "Titel", "Text", nil))
}

func TestEntryFingerprintNormalizesTimezoneAndWhitespace(t *testing.T) {
	utc := time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC)
	berlin := utc.In(time.FixedZone("CEST", 2*3600))

	assert.Equal(t,
		EntryFingerprint("f", "g", "l", "Titel", "Text", &utc),
		EntryFingerprint("f", "g", "l", " Titel ", "Text\n", &berlin))
}
