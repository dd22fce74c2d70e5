// Package sse pushes job progress to the browser with Server-Sent Events.
//
// Clients register under an ID such as "job:<id>:<conn>" and the job
// runner publishes to the glob "job:<id>:*", so several tabs can watch
// the same job.
package sse
