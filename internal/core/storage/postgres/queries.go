package postgres

const querySaveItinerary = `
INSERT INTO itineraries (name, document, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (name)
DO UPDATE SET document = EXCLUDED.document, updated_at = EXCLUDED.updated_at
`

const queryLoadItinerary = `
SELECT name, document, updated_at
FROM itineraries
WHERE name = $1
`

const queryListItineraries = `
SELECT name
FROM itineraries
ORDER BY name
`
