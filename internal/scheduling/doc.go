// Package scheduling decides whether events and activities can be scheduled.
//
// The functions here are pure: callers resolve the places referenced by a
// draft beforehand and pass them in, and every business-rule violation comes
// back as a FieldError instead of an error value. Date, time, place and
// capacity rules are always evaluated together so a form can highlight every
// offending field at once.
package scheduling
