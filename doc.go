/*
Package contentguard moderates user-uploaded media as it lands in object
storage.

A push subscription delivers one storage notification per upload to the
webhook in package server. Each event runs through a fixed pipeline:

	filter     skip incomplete, out-of-scope, unsupported or already tagged objects
	claim      optional per-object claim in the DynamoDB ledger
	classify   score the image by storage reference against the threshold policy
	enforce    delete unsafe objects, tag safe ones moderated=true
	record     write the terminal outcome to the ledger

Outcomes are Safe, Unsafe, Skipped or Error. Error never touches the
object, so a later delivery or the reconciler can still process it.

Quick Start:

	mod := contentguard.NewModerator(
		filter.New(filter.DefaultMediaPrefix),
		classifier.NewAdapter(classifier.NewRekognition(rekognitionClient)),
		enforcer.New(objectstore.NewS3Store(s3Client), 10*time.Second, log),
		contentguard.WithLogger(log),
	)

	res := mod.Moderate(ctx, ev, deliveryID)

Video uploads are not classified yet and come out Safe.

Packages:
  - event: push envelope and storage event decoding
  - filter: skip predicates
  - classifier: likelihood scale, threshold policy, Rekognition backend
  - enforcer: delete or tag through objectstore
  - ledger: audit records and claims on datastore/ddb
  - reconcile: re-run of errored moderations
  - server: fiber webhook, health and metrics endpoints
*/
package contentguard
