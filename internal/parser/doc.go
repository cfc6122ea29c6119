// Package parser turns one line of text emitted by an arbitrary logging
// library into a normalized model.Record.
//
// A Registry holds an ordered chain of Recognizers. The built-in chain is,
// in priority order:
//
//	klog        E0714 23:11:19.386396       1 pd_failover.go:70] message
//	logr        2024-03-05T10:07:17.123Z	ERROR	source	message
//	logr-epoch  1.6599427639039357e+09	INFO	source	message
//	logrus      time="2022-08-08T03:21:28Z" level=info msg="..." src="x.go:1"
//	logr-alt    same shape as logr
//
// The first recognizer whose pattern matches the whole line wins and no
// other recognizer contributes. Custom recognizers are appended after the
// built-ins. When nothing matches, the line is decoded as a JSON object.
//
// Every successful path normalizes the record: a "severity" key is renamed
// to "level" when "level" is absent, and a string level is lowercased.
//
// Classification never fails the caller. Registry.Parse reports an
// *UnrecognizedError; Registry.Classify turns that into an empty record and
// a single debug message on the injected Sink.
//
// A Registry is immutable after New and safe for concurrent use.
package parser
