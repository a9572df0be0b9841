package domain

// DefaultSplitDefinitions is the reference dataset seeded on first boot.
// Sequence numbers order the rotation within each family.
func DefaultSplitDefinitions() []SplitDefinition {
	return []SplitDefinition{
		// Full body: one slot, every major group, long recovery.
		{
			Name:      "Full Body",
			SplitType: SplitFullBody,
			MuscleGroups: []MuscleGroup{
				MuscleChest, MuscleBack, MuscleShoulders, MuscleQuads,
				MuscleHamstrings, MuscleGlutes, MuscleCore,
			},
			RecoveryHours: 48,
			Difficulty:    "Novice",
			Sequence:      1,
		},

		// Upper / lower.
		{
			Name:      "Upper Body",
			SplitType: SplitUpperLower,
			MuscleGroups: []MuscleGroup{
				MuscleChest, MuscleBack, MuscleShoulders, MuscleBiceps, MuscleTriceps,
			},
			RecoveryHours: 48,
			Difficulty:    "Medium",
			Sequence:      1,
		},
		{
			Name:      "Lower Body",
			SplitType: SplitUpperLower,
			MuscleGroups: []MuscleGroup{
				MuscleQuads, MuscleHamstrings, MuscleGlutes, MuscleCalves, MuscleCore,
			},
			RecoveryHours: 48,
			Difficulty:    "Medium",
			Sequence:      2,
		},

		// Push / pull / legs.
		{
			Name:      "Push",
			SplitType: SplitPushPullLegs,
			MuscleGroups: []MuscleGroup{
				MuscleChest, MuscleShoulders, MuscleTriceps,
			},
			RecoveryHours: 48,
			Difficulty:    "Medium",
			Sequence:      1,
		},
		{
			Name:      "Pull",
			SplitType: SplitPushPullLegs,
			MuscleGroups: []MuscleGroup{
				MuscleBack, MuscleBiceps,
			},
			RecoveryHours: 48,
			Difficulty:    "Medium",
			Sequence:      2,
		},
		{
			Name:      "Legs",
			SplitType: SplitPushPullLegs,
			MuscleGroups: []MuscleGroup{
				MuscleQuads, MuscleHamstrings, MuscleGlutes, MuscleCalves,
			},
			RecoveryHours: 72,
			Difficulty:    "Medium",
			Sequence:      3,
		},

		// Body part: one focus group per day, seven slots.
		{
			Name:          "Chest Day",
			SplitType:     SplitBodyPart,
			MuscleGroups:  []MuscleGroup{MuscleChest, MuscleTriceps},
			RecoveryHours: 72,
			Difficulty:    "Advanced",
			Sequence:      1,
		},
		{
			Name:          "Back Day",
			SplitType:     SplitBodyPart,
			MuscleGroups:  []MuscleGroup{MuscleBack, MuscleBiceps},
			RecoveryHours: 72,
			Difficulty:    "Advanced",
			Sequence:      2,
		},
		{
			Name:          "Shoulder Day",
			SplitType:     SplitBodyPart,
			MuscleGroups:  []MuscleGroup{MuscleShoulders, MuscleCore},
			RecoveryHours: 48,
			Difficulty:    "Advanced",
			Sequence:      3,
		},
		{
			Name:          "Leg Day",
			SplitType:     SplitBodyPart,
			MuscleGroups:  []MuscleGroup{MuscleQuads, MuscleHamstrings, MuscleGlutes},
			RecoveryHours: 72,
			Difficulty:    "Advanced",
			Sequence:      4,
		},
		{
			Name:          "Arm Day",
			SplitType:     SplitBodyPart,
			MuscleGroups:  []MuscleGroup{MuscleBiceps, MuscleTriceps},
			RecoveryHours: 48,
			Difficulty:    "Advanced",
			Sequence:      5,
		},
		{
			Name:          "Glute & Calf Day",
			SplitType:     SplitBodyPart,
			MuscleGroups:  []MuscleGroup{MuscleGlutes, MuscleCalves},
			RecoveryHours: 48,
			Difficulty:    "Advanced",
			Sequence:      6,
		},
		{
			Name:          "Core Day",
			SplitType:     SplitBodyPart,
			MuscleGroups:  []MuscleGroup{MuscleCore},
			RecoveryHours: 24,
			Difficulty:    "Advanced",
			Sequence:      7,
		},
	}
}
