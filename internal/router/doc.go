// Package router classifies user replies and hands them to a sub-agent,
// either as a new request or as a decision on a pending action.
package router
