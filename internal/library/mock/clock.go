package mock

import "time"

// nowFunc is swappable for date-filter tests.
var nowFunc = time.Now
