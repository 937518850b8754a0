package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/taskledger/internal/clock"
	"github.com/dmitrijs2005/taskledger/internal/dbx"
	"github.com/dmitrijs2005/taskledger/internal/logging"
	"github.com/dmitrijs2005/taskledger/internal/server/config"
	"github.com/dmitrijs2005/taskledger/internal/server/models"
	"github.com/dmitrijs2005/taskledger/internal/server/policy"
	"github.com/dmitrijs2005/taskledger/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// ReportLinkValidity is how long an exported report link stays usable.
const ReportLinkValidity = 15 * time.Minute

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput) error {
		_, err := c.PutObject(ctx, in)
		return err
	}

	presignGetObject = func(c *s3.Client, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return s3.NewPresignClient(c).PresignGetObject(ctx, in, optFns...)
	}
)

// ContributionReport describes an exported CSV of member contributions.
type ContributionReport struct {
	Key       string
	URL       string
	Rows      int
	ExpiresAt time.Time
}

// ReportService exports project contribution reports to S3-compatible
// object storage.
type ReportService struct {
	base
	members *MembershipService
	config  *config.Config
}

func NewReportService(db dbx.Transactor, m repomanager.RepositoryManager, members *MembershipService, cfg *config.Config, clk clock.Clock, l logging.Logger) *ReportService {
	return &ReportService{base: newBase("report", db, m, clk, l), members: members, config: cfg}
}

func (s *ReportService) s3Client(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(s.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}
	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	}), nil
}

// reportKey returns the object key of a new report for projectID.
func reportKey(projectID string, at time.Time) string {
	return fmt.Sprintf("reports/%s/%s-%s.csv", projectID, at.UTC().Format("20060102T150405Z"), uuid.NewString())
}

// RenderContributionsCSV writes one row per member.
func RenderContributionsCSV(members []models.Member) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"user_id", "name", "email", "role", "contribution_minutes", "last_activity", "session_open"}); err != nil {
		return nil, err
	}
	for _, m := range members {
		last := ""
		if m.LastActivity != nil {
			last = m.LastActivity.UTC().Format(time.RFC3339)
		}
		row := []string{
			m.UserID, m.Name, m.Email, string(m.Role),
			strconv.FormatInt(m.ContributionMinutes, 10),
			last,
			strconv.FormatBool(m.Running()),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// ExportContributions uploads the member contributions of projectID as CSV
// and returns a presigned download link.
func (s *ReportService) ExportContributions(ctx context.Context, acting, projectID string) (*ContributionReport, error) {
	if _, err := s.repomanager.Projects(s.db).GetByID(ctx, projectID); err != nil {
		return nil, s.fail(ctx, "get_project", err)
	}
	if err := s.members.Require(ctx, acting, projectID, policy.TaskManagers...); err != nil {
		return nil, err
	}

	members, err := s.repomanager.Memberships(s.db).ListByProject(ctx, projectID)
	if err != nil {
		return nil, s.fail(ctx, "list_members", err)
	}
	body, err := RenderContributionsCSV(members)
	if err != nil {
		return nil, s.fail(ctx, "render_report", err)
	}

	client, err := s.s3Client(ctx)
	if err != nil {
		return nil, s.fail(ctx, "s3_client", err)
	}

	now := s.clock.Now()
	bucket := s.config.S3Bucket
	key := reportKey(projectID, now)

	if err := putObject(client, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: aws.String("text/csv"),
	}); err != nil {
		return nil, s.fail(ctx, "upload_report", err)
	}

	req, err := presignGetObject(client, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(ReportLinkValidity))
	if err != nil {
		return nil, s.fail(ctx, "presign_report", err)
	}

	s.logger.Info(ctx, "contribution report exported", "project_id", projectID, "key", key, "rows", len(members))
	return &ContributionReport{Key: key, URL: req.URL, Rows: len(members), ExpiresAt: now.Add(ReportLinkValidity)}, nil
}
