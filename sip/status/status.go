package status

const (
	Trying  = 100
	Ringing = 180

	OK       = 200
	Accepted = 202

	BadRequest                  = 400
	Forbidden                   = 403
	NotFound                    = 404
	MethodNotAllowed            = 405
	RequestTimeout              = 408
	UnsupportedMediaType        = 415
	CallTransactionDoesNotExist = 481
	RequestTerminated           = 487
	NotAcceptableHere           = 488
	BadEvent                    = 489

	ServerInternalError = 500
	ServiceUnavailable  = 503

	Decline = 603
)
