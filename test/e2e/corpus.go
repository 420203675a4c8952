// Package e2e exercises the full ingest and retrieval pipeline over a
// realistic review corpus.
package e2e

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/arielhalevy123/revsearch/internal/models"
)

// QueryTestCase pairs a search query with the document IDs a working
// pipeline must surface for it. A case passes when at least one expected ID
// appears in the results.
type QueryTestCase struct {
	Query          string
	ExpectedDocIDs []string
	Description    string
}

// Corpus is a fixed set of fast-food reviews plus the queries used to probe
// them. Every review carries distinctive terms that appear in no other
// review, so each query has an unambiguous best match.
type Corpus struct {
	Documents []models.Document
	TestCases []QueryTestCase
}

// BuildCorpus returns the review corpus and its query test cases.
func BuildCorpus() *Corpus {
	docs := []models.Document{
		{ID: "rev-001", Text: "The milkshake machine was broken again. Third visit in a row and still no shakes. At this point I assume it has never worked."},
		{ID: "rev-002", Text: "Sat in the drive thru for forty five minutes for two happy meals. The line wrapped around the building and barely moved."},
		{ID: "rev-003", Text: "Fries were cold and soggy, like they had been sitting under the lamp since breakfast. Asked for a fresh batch and got a sigh."},
		{ID: "rev-004", Text: "Honestly a pleasant surprise. The staff were friendly, the tables were spotless, and my order came out hot in under five minutes."},
		{ID: "rev-005", Text: "The playground area was sticky everywhere and smelled faintly of spilled soda. My kids loved it anyway, which worries me."},
		{ID: "rev-006", Text: "They got my order wrong twice. Ordered twenty nuggets, received a fish sandwich and an apology coupon for a free pie."},
		{ID: "rev-007", Text: "Breakfast here is the move. Hash browns crispy, sausage egg muffin assembled with actual care. Coffee was fresh for once."},
		{ID: "rev-008", Text: "Coffee was lukewarm and they refused a refill even though the cup says free refills before 10am. Petty and disappointing."},
		{ID: "rev-009", Text: "A seagull stole my entire hamburger in the parking lot and the crew watched it happen. No refund for acts of nature, apparently."},
		{ID: "rev-010", Text: "The self service kiosk froze three times, ate my coupon code, and then the receipt printer jammed. Ordering took longer than eating."},
		{ID: "rev-011", Text: "Cleanest location I have ever visited. Floors mopped, condiment station stocked, restrooms immaculate. Somebody give this manager a raise."},
		{ID: "rev-012", Text: "The night shift crew blasting music and dancing while making my double cheeseburger was the best dinner show in town."},
		{ID: "rev-013", Text: "Found the wifi unusable and every power outlet was blocked off. Fine for a burger, useless for getting any work done."},
		{ID: "rev-014", Text: "The spicy chicken sandwich was actually spicy for once, with a properly toasted bun. Would absolutely order it again."},
		{ID: "rev-015", Text: "My toddler dropped her ice cream cone and an employee replaced it for free without being asked. Small kindness, loyal customer."},
		{ID: "rev-016", Text: "Ordered delivery and half the bag was missing. No straw, no napkins, no dipping sauce, and somehow no burger either."},
		{ID: "rev-017", Text: "The parking lot design is a war zone at lunch hour. Two lanes merge into one and everyone pretends not to see each other."},
		{ID: "rev-018", Text: "The apple pie was molten lava on the inside as tradition demands, but the crust was stale. Mixed feelings about this visit."},
		{ID: "rev-019", Text: "Asked for extra pickles and received what I can only describe as a pickle sandwich with a burger garnish. Ten out of ten."},
		{ID: "rev-020", Text: "Bathroom had no soap and the door lock was broken. The food was fine but the hygiene situation needs urgent attention."},
		{ID: "rev-021", Text: "New remodel looks great but they removed all the booths. Hard plastic stools clearly designed to make you leave faster."},
		{ID: "rev-022", Text: "The manager personally apologized when my mobile order vanished from their screen and comped the whole meal. Respect earned."},
		{ID: "rev-023", Text: "Nugget sauce rationing has gone too far. One barbecue packet for twenty nuggets is a crime against dipping."},
		{ID: "rev-024", Text: "Open twenty four hours and at 3am it becomes a philosophy seminar. The fries slap harder after midnight, this is known."},
		{ID: "rev-025", Text: "Everything was fine until a cockroach strolled across the counter like it owned a franchise. Never going back to this location."},
	}

	cases := []QueryTestCase{
		{
			Query:          "milkshake machine broken",
			ExpectedDocIDs: []string{"rev-001"},
			Description:    "broken shake machine complaint",
		},
		{
			Query:          "slow drive thru line",
			ExpectedDocIDs: []string{"rev-002"},
			Description:    "drive thru wait time",
		},
		{
			Query:          "cold soggy fries",
			ExpectedDocIDs: []string{"rev-003"},
			Description:    "stale fries complaint",
		},
		{
			Query:          "friendly staff spotless tables",
			ExpectedDocIDs: []string{"rev-004"},
			Description:    "positive service and cleanliness",
		},
		{
			Query:          "sticky playground",
			ExpectedDocIDs: []string{"rev-005"},
			Description:    "play area condition",
		},
		{
			Query:          "wrong order nuggets",
			ExpectedDocIDs: []string{"rev-006"},
			Description:    "order accuracy problem",
		},
		{
			Query:          "crispy hash browns breakfast",
			ExpectedDocIDs: []string{"rev-007"},
			Description:    "breakfast praise",
		},
		{
			Query:          "lukewarm coffee refill refused",
			ExpectedDocIDs: []string{"rev-008"},
			Description:    "coffee refill dispute",
		},
		{
			Query:          "seagull stole hamburger",
			ExpectedDocIDs: []string{"rev-009"},
			Description:    "bird theft incident",
		},
		{
			Query:          "kiosk froze receipt jammed",
			ExpectedDocIDs: []string{"rev-010"},
			Description:    "kiosk malfunction",
		},
		{
			Query:          "spicy chicken sandwich toasted bun",
			ExpectedDocIDs: []string{"rev-014"},
			Description:    "menu item praise",
		},
		{
			Query:          "delivery missing sauce napkins",
			ExpectedDocIDs: []string{"rev-016"},
			Description:    "incomplete delivery",
		},
		{
			Query:          "bathroom soap hygiene",
			ExpectedDocIDs: []string{"rev-020"},
			Description:    "hygiene complaint",
		},
		{
			Query:          "fries after midnight",
			ExpectedDocIDs: []string{"rev-024", "rev-003"},
			Description:    "late night fries",
		},
		{
			Query:          "manager comped mobile order",
			ExpectedDocIDs: []string{"rev-022"},
			Description:    "service recovery",
		},
		{
			Query:          "cockroach on counter",
			ExpectedDocIDs: []string{"rev-025"},
			Description:    "pest sighting",
		},
	}

	return &Corpus{Documents: docs, TestCases: cases}
}

// WriteJSONL writes the corpus documents to path as JSON Lines, the format
// the ingester consumes.
func (c *Corpus) WriteJSONL(path string) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range c.Documents {
		if err := enc.Encode(&c.Documents[i]); err != nil {
			return err
		}
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
