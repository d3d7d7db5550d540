package repos

import "time"

// now is the write-time clock for every repo. Millisecond precision matches the
// coarsest timestamp column we migrate to (MySQL datetime(3)).
func now() time.Time {
    return time.Now().UTC().Truncate(time.Millisecond)
}
