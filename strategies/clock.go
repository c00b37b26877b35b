package strategies

import "time"

// nowFunc is swapped out by tests that need a fixed clock.
var nowFunc = time.Now
