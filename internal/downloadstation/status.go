package downloadstation

import "strconv"

// TaskStatus is the numeric task state reported by the DS2 API.
// Values at or above StatusError are terminal error states.
type TaskStatus int

const (
	StatusWaiting            TaskStatus = 1
	StatusDownloading        TaskStatus = 2
	StatusPaused             TaskStatus = 3
	StatusFinishing          TaskStatus = 4
	StatusFinished           TaskStatus = 5
	StatusHashChecking       TaskStatus = 6
	StatusPreSeeding         TaskStatus = 7
	StatusSeeding            TaskStatus = 8
	StatusFilehostingWaiting TaskStatus = 9
	StatusExtracting         TaskStatus = 10
	StatusPreprocessing      TaskStatus = 11
	StatusPreprocessPass     TaskStatus = 12
	StatusDownloaded         TaskStatus = 13
	StatusPostprocessing     TaskStatus = 14
	StatusCaptchaNeeded      TaskStatus = 15

	StatusError                           TaskStatus = 101
	StatusErrorBrokenLink                 TaskStatus = 102
	StatusErrorDestNoExist                TaskStatus = 103
	StatusErrorDestDeny                   TaskStatus = 104
	StatusErrorDiskFull                   TaskStatus = 105
	StatusErrorQuotaReached               TaskStatus = 106
	StatusErrorTimeout                    TaskStatus = 107
	StatusErrorExceedMaxFsSize            TaskStatus = 108
	StatusErrorExceedMaxTempFsSize        TaskStatus = 109
	StatusErrorExceedMaxDestFsSize        TaskStatus = 110
	StatusErrorNameTooLongEncryption      TaskStatus = 111
	StatusErrorNameTooLong                TaskStatus = 112
	StatusErrorTorrentDuplicate           TaskStatus = 113
	StatusErrorFileNoExist                TaskStatus = 114
	StatusErrorRequiredPremium            TaskStatus = 115
	StatusErrorNotSupportType             TaskStatus = 116
	StatusErrorFtpEncryptionNotSupported  TaskStatus = 117
	StatusErrorExtractFail                TaskStatus = 118
	StatusErrorExtractWrongPassword       TaskStatus = 119
	StatusErrorExtractInvalidArchive      TaskStatus = 120
	StatusErrorExtractQuotaReached        TaskStatus = 121
	StatusErrorExtractDiskFull            TaskStatus = 122
	StatusErrorTorrentInvalid             TaskStatus = 123
	StatusErrorRequiredAccount            TaskStatus = 124
	StatusErrorTryItLater                 TaskStatus = 125
	StatusErrorEncryption                 TaskStatus = 126
	StatusErrorMissingPython              TaskStatus = 127
	StatusErrorPrivateVideo               TaskStatus = 128
	StatusErrorExtractFolderNotExist      TaskStatus = 129
	StatusErrorNzbMissingArticle          TaskStatus = 130
	StatusErrorEd2kLinkDuplicate          TaskStatus = 131
	StatusErrorDestFileDuplicate          TaskStatus = 132
	StatusErrorParchiveRepairFailed       TaskStatus = 133
	StatusErrorInvalidAccountPassword     TaskStatus = 134
)

// IsError reports whether the status is a terminal error state.
func (s TaskStatus) IsError() bool {
	return s >= StatusError
}

var statusNames = map[TaskStatus]string{
	StatusWaiting:            "waiting",
	StatusDownloading:        "downloading",
	StatusPaused:             "paused",
	StatusFinishing:          "finishing",
	StatusFinished:           "finished",
	StatusHashChecking:       "hash_checking",
	StatusPreSeeding:         "pre_seeding",
	StatusSeeding:            "seeding",
	StatusFilehostingWaiting: "filehosting_waiting",
	StatusExtracting:         "extracting",
	StatusPreprocessing:      "preprocessing",
	StatusPreprocessPass:     "preprocess_pass",
	StatusDownloaded:         "downloaded",
	StatusPostprocessing:     "postprocessing",
	StatusCaptchaNeeded:      "captcha_needed",
}

func (s TaskStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	if s.IsError() {
		return "error(" + strconv.Itoa(int(s)) + ")"
	}
	return "unknown(" + strconv.Itoa(int(s)) + ")"
}
