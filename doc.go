// Package disorder provides lazily resolving references to genetic
// disorders for pedigree annotation.
//
// A Ref pairs a caller-supplied identifier with a display name. The
// identifier is either a vocabulary code ("MIM:190685", "MONDO:0007525"),
// a bare OMIM number ("190685") or free text ("Down Syndrome"). Coded
// identifiers are looked up on demand through an external terminology
// service; free text is its own name.
//
// # Quick Start
//
//	tmpl, _ := endpoint.NewTemplate("https://example.org/rest/vocabularies/disorders/{code}")
//	svc := disorder.NewService(tmpl, transport.NewClient())
//
//	ref := svc.NewRef("190685", "", nil)
//	<-ref.Resolve(ctx, func(r *disorder.Ref) {
//	    fmt.Println(r.ID(), "=>", r.Name())
//	})
//
// # Resolution
//
//   - A name given at construction wins and no lookup is made.
//   - Identifiers containing ":" are looked up unmodified.
//   - Bare integers are looked up as "MIM:<n>".
//   - Anything else is free text and resolves to itself.
//
// Lookups never return errors to the caller. On a transport failure or a
// malformed response the Ref displays its identifier, moves to
// StateFailed and records the cause in Err; the service logs the event.
// Only one lookup is in flight per Ref at a time, concurrent lookups of
// the same code across Refs share a request, and settled names are cached.
//
// # Collaborators
//
// A Service is built from an EndpointResolver and a Client:
//
//   - endpoint.Template and endpoint.FHIRLookup build lookup URLs
//   - transport.Client performs rate-limited HTTP GETs
//   - JSONDecoder reads {"name": ...} records, FHIRPathDecoder reads
//     FHIR $lookup Parameters
//   - vocabulary.Service serves a local CodeSystem over HTTP or in process
package disorder
