// Package announcements is the client surface for organization announcements.
package announcements
