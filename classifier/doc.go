/*
Package classifier turns an external image-safety capability into a
moderation outcome.

Scores come back as Likelihood values on the ordered scale

	UNKNOWN < VERY_UNLIKELY < UNLIKELY < POSSIBLE < LIKELY < VERY_LIKELY

and a Policy marks an image Unsafe when any monitored category ranks at or
above the threshold (LIKELY by default). There is no weighting between
categories.

The Adapter bounds every backend call with a timeout. A failed call or a
timeout yields verdict.Error, and so does a response that does not score
every monitored category. Callers must never read an Error as Safe or
Unsafe. Videos are not sent to the backend and come back
Safe; that gap is logged on every occurrence.

The production backend is AWS Rekognition DetectModerationLabels, reading
the object directly from S3:

	backend := classifier.NewRekognition(classifier.NewRekognitionClient(awsCfg))
	adapter := classifier.NewAdapter(backend,
	    classifier.WithPolicy(policy),
	    classifier.WithTimeout(10*time.Second),
	    classifier.WithLogger(log),
	)
*/
package classifier
