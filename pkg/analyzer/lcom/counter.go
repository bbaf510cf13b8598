package lcom

// Counts is the outcome of pairwise comparison of usage vectors.
type Counts struct {
	Methods     int `json:"methods"`
	Pairs       int `json:"pairs"`
	Cohesive    int `json:"cohesive"`     // Q: pairs sharing a member
	NonCohesive int `json:"non_cohesive"` // P: pairs sharing nothing
	LCOM        int `json:"lcom"`
}

// Count compares every unordered pair of vectors and returns max(P-Q, 0).
// With zero members no pair intersects, so the result is n(n-1)/2.
func Count(vectors []UsageVector) Counts {
	n := len(vectors)
	c := Counts{Methods: n}
	if n <= 1 {
		return c
	}

	c.Pairs = n * (n - 1) / 2
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if vectors[i].Intersects(vectors[j]) {
				c.Cohesive++
			}
		}
	}
	c.NonCohesive = c.Pairs - c.Cohesive

	if c.NonCohesive > c.Cohesive {
		c.LCOM = c.NonCohesive - c.Cohesive
	}
	return c
}
