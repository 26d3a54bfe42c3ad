/*
Package alarm manages audio playback and notifications for expired
timers.

The Manager keeps one playback handle per alarming timer. Trigger
starts looped audio (the configured asset when playable, otherwise a
synthesized 880 Hz tone) and shows a system notification; Stop
releases the handle when the user dismisses the alarm.

Both collaborators are capability-probed: a nil Player mutes alarms, a
nil Notifier or denied permission skips notifications, and playback
errors degrade through the tone fallback to silence. Nothing here
returns an error to the engine.
*/
package alarm
