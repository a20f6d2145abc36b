package services

import (
	"log"
	"time"

	"skillforge/models"
)

// ActivityService wires the event chain behind every learning action:
// progress updates feed the streak tracker, which feeds the points
// ledger, which feeds the challenge/achievement evaluator. Gamification
// failures are logged, never surfaced; they must not fail the action
// that triggered them.
type ActivityService struct {
	Tracker      *ProgressTracker
	Streaks      *StreakService
	Ledger       *PointsLedger
	Evaluator    *Evaluator
	Quizzes      *QuizService
	Certificates *CertificateService
	Logger       *log.Logger
}

// RecordDailyActivity advances the user's streak for today and pushes the
// new streak length into streak achievements and challenges.
func (as *ActivityService) RecordDailyActivity(userID uint) *StreakResult {
	result, err := as.Streaks.Update(userID, time.Now())
	if err != nil {
		as.logf("user %d: streak update failed: %v", userID, err)
		return nil
	}

	if result.Transition == StreakExtended {
		if _, err := as.Evaluator.CheckAchievement(userID, models.AchievementStreak, result.CurrentStreak); err != nil {
			as.logf("user %d: streak achievement check failed: %v", userID, err)
		}
		if err := as.Evaluator.AdvanceUserChallenges(userID, models.ChallengeStreak, result.CurrentStreak); err != nil {
			as.logf("user %d: streak challenge advance failed: %v", userID, err)
		}
	}
	return result
}

// OnContentCompleted awards activity points and, when the completion
// transitioned the enrollment to completed, pays the course bonus,
// issues the certificate, and feeds course-completion counters into the
// evaluator.
func (as *ActivityService) OnContentCompleted(userID, enrollmentID uint, result *CompletionResult) {
	if _, _, err := as.Ledger.Award(userID, PointsContentCompleted,
		models.TxCourseProgress, "Completed a content item", "enrollment", &enrollmentID); err != nil {
		as.logf("user %d: content points failed: %v", userID, err)
	}

	as.RecordDailyActivity(userID)

	if !result.JustCompleted {
		return
	}

	if _, _, err := as.Ledger.Award(userID, PointsCourseCompleted,
		models.TxCourseProgress, "Completed a course", "enrollment", &enrollmentID); err != nil {
		as.logf("user %d: course bonus failed: %v", userID, err)
	}

	if as.Certificates != nil {
		if _, err := as.Certificates.IssueForEnrollment(enrollmentID); err != nil && !IsValidation(err) {
			as.logf("enrollment %d: certificate issue failed: %v", enrollmentID, err)
		}
	}

	completed, err := as.Tracker.CompletedCourseCount(userID)
	if err != nil {
		as.logf("user %d: completed course count failed: %v", userID, err)
		return
	}
	if _, err := as.Evaluator.CheckAchievement(userID, models.AchievementCourseCompletion, completed); err != nil {
		as.logf("user %d: completion achievement check failed: %v", userID, err)
	}
	if err := as.Evaluator.AdvanceUserChallenges(userID, models.ChallengeCourseCompletion, completed); err != nil {
		as.logf("user %d: completion challenge advance failed: %v", userID, err)
	}
}

// OnQuizSubmitted awards points for a passed attempt and feeds the best
// score across all attempts into quiz achievements and challenges.
func (as *ActivityService) OnQuizSubmitted(userID, quizID uint, result *AttemptResult) {
	as.RecordDailyActivity(userID)

	if !result.Passed {
		return
	}

	if _, _, err := as.Ledger.Award(userID, PointsQuizPassed,
		models.TxQuizCompletion, "Passed a quiz", "quiz", &quizID); err != nil {
		as.logf("user %d: quiz points failed: %v", userID, err)
	}

	best := int(result.Percentage)
	if as.Quizzes != nil {
		if b, err := as.Quizzes.BestPercentage(userID, quizID); err != nil {
			as.logf("user %d: best percentage lookup failed: %v", userID, err)
		} else if b > best {
			best = b
		}
	}
	if _, err := as.Evaluator.CheckAchievement(userID, models.AchievementQuizScore, best); err != nil {
		as.logf("user %d: quiz achievement check failed: %v", userID, err)
	}
	if err := as.Evaluator.AdvanceUserChallenges(userID, models.ChallengeQuizMastery, best); err != nil {
		as.logf("user %d: quiz challenge advance failed: %v", userID, err)
	}
}

func (as *ActivityService) logf(format string, args ...interface{}) {
	if as.Logger != nil {
		as.Logger.Printf(format, args...)
	}
}
