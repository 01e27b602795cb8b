package errors

type Code string

const (
	CodeUnknown          Code = "UNKNOWN"
	CodeInternal         Code = "INTERNAL_ERROR"
	CodeConfigValidation Code = "CONFIG_VALIDATION_ERROR"
	CodeConfigReadError  Code = "CONFIG_READ_ERROR"
	CodeConfigParseError Code = "CONFIG_PARSE_ERROR"
	CodeConfigNotFound   Code = "CONFIG_NOT_FOUND"

	CodePactReadError    Code = "PACT_READ_ERROR"
	CodePactParseError   Code = "PACT_PARSE_ERROR"
	CodePactSourceError  Code = "PACT_SOURCE_ERROR"
	CodeBrokerAPIError   Code = "BROKER_API_ERROR"
	CodeBrokerAuthError  Code = "BROKER_AUTH_ERROR"
	CodePublishError     Code = "PUBLISH_ERROR"
	CodeStateChangeError Code = "STATE_CHANGE_ERROR"
	CodeProviderIOError  Code = "PROVIDER_IO_ERROR"
	CodeMatchingError    Code = "MATCHING_ERROR"
	CodeComparisonError  Code = "COMPARISON_ERROR"
	CodePathParseError   Code = "PATH_PARSE_ERROR"
	CodeNotImplemented   Code = "NOT_IMPLEMENTED"
	CodeTimeout          Code = "TIMEOUT_ERROR"
)

func (c Code) String() string {
	return string(c)
}
