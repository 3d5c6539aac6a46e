// Package protocol defines the text frames exchanged between the broker and
// its workers, the closed set of job names, and the typed payload carried by
// each job.
//
// Frames are single WebSocket text messages whose fields are separated by ';':
//
//	dispatch:  <jobName>;<jobId>;<dispatchTimestampMs>;<jsonPayload>
//	success:   completed;<jobId>;<jsonResult>;<dispatchTimestampMs>
//	failure:   error;<jobId>;<errorMessage>;<errorStack>;<dispatchTimestampMs>
//
// JSON fields are located by position (the payload is last, the result is
// bounded by the trailing timestamp) so they never need escaping. The free
// text fields of a failure frame escape '\', ';' and newlines.
package protocol
