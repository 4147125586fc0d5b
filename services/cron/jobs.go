package cron

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sahilchouksey/learnhub-api/model"
	"github.com/sahilchouksey/learnhub-api/services"
)

// SyncGroupChatMemberships reconciles group chat members with course entitlements.
// Runs hourly so chats lose members whose enrollment or subscription lapsed.
func (m *CronManager) SyncGroupChatMemberships() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	jobName := "sync_group_chat_memberships"

	result, err := m.groupChats.SyncMemberships(ctx)
	if err != nil {
		m.logJobError(jobName, fmt.Errorf("membership sync failed: %w", err))
		return
	}

	m.logJobComplete(jobName, fmt.Sprintf(
		"Processed %d chats, removed %d members, deleted %d chats, %d chats failed",
		result.ChatsProcessed, result.MembersRemoved, result.ChatsDeleted, result.ChatsFailed))
}

// ExpireSubscriptions deactivates user subscriptions whose end date has passed.
// Runs every 30 minutes; lifetime subscriptions have no end date and are skipped.
func (m *CronManager) ExpireSubscriptions() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	jobName := "expire_subscriptions"
	now := time.Now()

	var expired []model.UserSubscription
	err := m.db.WithContext(ctx).
		Where("is_active = ? AND end_date IS NOT NULL AND end_date < ?", true, now).
		Find(&expired).Error
	if err != nil {
		m.logJobError(jobName, fmt.Errorf("failed to query subscriptions: %w", err))
		return
	}

	if len(expired) == 0 {
		m.logJobComplete(jobName, "No subscriptions to expire")
		return
	}

	deactivated := 0
	for _, sub := range expired {
		err := m.db.WithContext(ctx).Model(&model.UserSubscription{}).
			Where("id = ?", sub.ID).
			Update("is_active", false).Error
		if err != nil {
			log.Printf("[CRON] Failed to deactivate subscription %d: %v", sub.ID, err)
			continue
		}
		deactivated++

		m.notifications.Dispatch(ctx, services.DispatchRequest{
			UserID:   sub.UserID,
			Type:     model.NotificationTypeWarning,
			Category: model.NotificationCategorySubscription,
			Title:    "Subscription expired",
			Message:  "Your subscription has expired. Renew to keep access to subscription courses.",
			Email:    true,
		})
	}

	m.logJobComplete(jobName, fmt.Sprintf("Deactivated %d of %d expired subscriptions", deactivated, len(expired)))
}

// CleanupOldNotifications removes read notifications older than 90 days.
// Runs daily at 2 AM.
func (m *CronManager) CleanupOldNotifications() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	jobName := "cleanup_old_notifications"

	deleted, err := m.notifications.CleanupOld(ctx, 90*24*time.Hour)
	if err != nil {
		m.logJobError(jobName, fmt.Errorf("cleanup failed: %w", err))
		return
	}

	m.logJobComplete(jobName, fmt.Sprintf("Deleted %d old notifications", deleted))
}

// RecountCourseStats recomputes denormalized counters for every course.
// Runs daily at 3 AM to repair drift from failed partial updates.
func (m *CronManager) RecountCourseStats() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	jobName := "recount_course_stats"

	var courseIDs []uint
	if err := m.db.WithContext(ctx).Model(&model.Course{}).Pluck("id", &courseIDs).Error; err != nil {
		m.logJobError(jobName, fmt.Errorf("failed to list courses: %w", err))
		return
	}

	recomputed := 0
	failed := 0
	for _, id := range courseIDs {
		if err := m.lifecycle.RecomputeCourseStats(ctx, id); err != nil {
			log.Printf("[CRON] Failed to recompute stats for course %d: %v", id, err)
			failed++
			continue
		}
		recomputed++
	}

	m.logJobComplete(jobName, fmt.Sprintf("Recomputed stats for %d courses, %d failed", recomputed, failed))
}
