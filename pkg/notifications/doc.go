// Package notifications reads user notifications and runs the background
// unread-count poller.
package notifications
