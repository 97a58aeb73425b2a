/*
Package event decodes push deliveries carrying storage upload notifications.

A delivery body looks like:

	{
	  "message": {
	    "data": "<base64 of the storage event JSON>",
	    "messageId": "123",
	    "publishTime": "2025-01-02T03:04:05Z"
	  },
	  "subscription": "projects/p/subscriptions/moderate"
	}

Decode rejects bodies that are not JSON, lack message or message.data, carry
data that is not base64, or whose payload is not a JSON object. These are
returned as errors matching errors.ErrMalformedEnvelope and must not be
acknowledged. A payload that decodes fine but lacks bucket, name or
contentType is still returned; deciding what to do with it is left to the
filter package.
*/
package event
