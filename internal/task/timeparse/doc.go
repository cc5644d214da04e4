// Package timeparse turns free-text task commands into a description and an
// optional absolute due time.
//
// Grammar (first match wins, in this order):
//
//	clock         [at] HH:MM [am|pm]
//	hour          [at] HH am|pm
//	relative      in|after N second|minute|hour|day[s]
//	tomorrow-at   tomorrow [at] HH[:MM] [am|pm]
//	tomorrow      tomorrow            -> 09:00 tomorrow
//	next-weekday  next <weekday>      -> 09:00, 1..7 days ahead
//	today         today|tonight       -> now + 1h
//
// A time of day that is not after now rolls to the next day.
package timeparse
