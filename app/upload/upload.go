package upload

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"camrelay/config"
	"camrelay/logger"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/pkg/errors"
)

// Uploader ships rotated relay log files to S3.
type Uploader struct {
	bucket    string
	logFolder string
	logger    *logger.Logger
	uploader  s3Uploader
}

type s3Uploader interface {
	Upload(*s3manager.UploadInput, ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error)
}

func NewUploader(s3config config.S3, logFolder string, logger *logger.Logger) (*Uploader, error) {
	if !s3config.Enabled() {
		return nil, errors.New("no S3 bucket configured")
	}

	awsConfig := &aws.Config{
		Region:           aws.String(s3config.Region),
		Credentials:      credentials.NewStaticCredentials(s3config.AccessKey, s3config.SecretKey, ""),
		S3ForcePathStyle: aws.Bool(true),
	}

	if s3config.EndpointUrl != "" {
		awsConfig.Endpoint = aws.String(s3config.EndpointUrl)
	}

	sess, err := session.NewSession(awsConfig)

	if err != nil {
		return nil, errors.Wrap(err, "creating AWS session")
	}

	return &Uploader{
		bucket:    s3config.Bucket,
		logFolder: logFolder,
		logger:    logger,
		uploader:  s3manager.NewUploader(sess),
	}, nil
}

// pendingLogs lists every log file in the folder except the newest one,
// which is the file the running process is writing to.
func pendingLogs(logFolder string) ([]string, error) {
	dir, err := os.Open(logFolder)

	if err != nil {
		return nil, err
	}

	defer func() { _ = dir.Close() }()

	filenames, err := dir.Readdirnames(0)

	if err != nil {
		return nil, err
	}

	var logs []string
	for _, name := range filenames {
		if strings.HasSuffix(name, ".log") {
			logs = append(logs, name)
		}
	}

	sort.Strings(logs)

	if len(logs) == 0 {
		return nil, nil
	}
	return logs[:len(logs)-1], nil
}

// UploadLogs uploads and removes old log files. It returns how many were
// shipped; failures are logged per file.
func (u *Uploader) UploadLogs() int {
	u.logger.LogInfo("Uploading logs to S3", "bucket", u.bucket, "folder", u.logFolder)

	filenames, err := pendingLogs(u.logFolder)

	if err != nil {
		u.logger.LogError(err, "Error reading log folder", "folder", u.logFolder)
		return 0
	}

	deviceHostName, err := os.Hostname()

	if err != nil {
		u.logger.LogError(err, "Error getting device hostname", "function", "UploadLogs")
		return 0
	}

	var uploaded int
	for _, filename := range filenames {
		localFilename := filepath.Join(u.logFolder, filename)
		f, err := os.ReadFile(localFilename)

		if err != nil {
			u.logger.LogError(err, "Error reading log file", "filename", localFilename)
			continue
		}

		_, err = u.uploader.Upload(&s3manager.UploadInput{
			Bucket:      aws.String(u.bucket),
			Key:         aws.String(fmt.Sprintf("%s/logs/%s", deviceHostName, filename)),
			Body:        bytes.NewReader(f),
			ContentType: aws.String("application/x-ndjson"),
		})

		if err != nil {
			u.logger.LogError(err, "Error uploading log file", "filename", filename)
			continue
		}

		if err := os.Remove(localFilename); err != nil {
			u.logger.LogError(err, "Error removing log file", "filename", filename)
		}
		uploaded++
	}

	return uploaded
}
