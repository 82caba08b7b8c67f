// Package delivery is the candidate delivery engine.
//
// A Service drives item sessions and test sessions through their state
// machines. Every operation:
//
//  1. checks the session id and capability token,
//  2. loads the latest event of the session and decodes its state,
//  3. checks the operation is permitted under the delivery settings,
//  4. advances the state through the item runtime,
//  5. appends exactly one event,
//
// all inside one store transaction. A denied operation returns a
// KindForbidden *Error naming the missing Privilege and writes nothing.
//
// Results are computed whenever an item session closes after being open,
// and once when a test ends or is exited.
//
// Rendering is read-only. The rendering branch is a function of the
// rendered event and the state it carries; see SelectTestBranch.
package delivery
