package scope

import "log"

// logPrintf is a package-level, overridable diagnostic sink, matching
// catrate's timeNow/timeNewTicker testability pattern. It carries exactly
// the two things close treats as "should not happen but is recoverable":
// a child overstaying its scope-closing grace period, and a redundant
// signal delivery to a child that was already done. Both are pure
// observability; neither affects close's blocking semantics.
var logPrintf = log.Printf
